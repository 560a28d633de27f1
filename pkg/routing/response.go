package routing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kass/go-openroute/pkg/geo"
	"github.com/kass/go-openroute/pkg/models"
)

// Required fields are pointers so a missing field can be told apart from
// a zero value.
type directionsResponse struct {
	BBox   []float64 `json:"bbox"`
	Routes []struct {
		Segments []segment `json:"segments"`
	} `json:"routes"`
}

type segment struct {
	Distance *float64 `json:"distance"`
	Duration *float64 `json:"duration"`
	Steps    []step   `json:"steps"`
}

type step struct {
	Distance    *float64 `json:"distance"`
	Duration    *float64 `json:"duration"`
	Type        *int     `json:"type"`
	Instruction *string  `json:"instruction"`
	Maneuver    *struct {
		Location []float64 `json:"location"`
	} `json:"maneuver"`
}

// parseRoute turns a directions response body into a complete route. Only
// the first segment of the first route is used.
func parseRoute(body []byte) (*models.Route, error) {
	var resp directionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(resp.BBox) != 4 {
		return nil, fmt.Errorf("bbox: expected 4 values, got %d", len(resp.BBox))
	}
	if len(resp.Routes) == 0 {
		return nil, fmt.Errorf("routes: empty")
	}
	if len(resp.Routes[0].Segments) == 0 {
		return nil, fmt.Errorf("routes[0].segments: empty")
	}

	seg := resp.Routes[0].Segments[0]
	if seg.Distance == nil || seg.Duration == nil {
		return nil, fmt.Errorf("segment: missing distance or duration")
	}
	if seg.Steps == nil {
		return nil, fmt.Errorf("segment: missing steps")
	}

	route := &models.Route{
		Length:      *seg.Distance,
		Duration:    *seg.Duration,
		BoundingBox: models.BoundingBoxFromLonLat([4]float64{resp.BBox[0], resp.BBox[1], resp.BBox[2], resp.BBox[3]}),
		Steps:       make([]models.RouteStep, 0, len(seg.Steps)),
		Polyline:    make([]geo.Coordinate, 0, len(seg.Steps)),
	}

	for i, s := range seg.Steps {
		rs, keep, err := parseStep(s)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		if !keep {
			continue
		}
		route.Steps = append(route.Steps, rs)
		route.Polyline = append(route.Polyline, rs.Location)
	}

	route.BuildLegs()
	route.Status = models.StatusOK
	return route, nil
}

// parseStep reports keep=false for arrive steps, which carry no turn
// instruction. Their location is not required.
func parseStep(s step) (models.RouteStep, bool, error) {
	var missing []string
	if s.Distance == nil {
		missing = append(missing, "distance")
	}
	if s.Duration == nil {
		missing = append(missing, "duration")
	}
	if s.Type == nil {
		missing = append(missing, "type")
	}
	if s.Instruction == nil {
		missing = append(missing, "instruction")
	}
	if len(missing) > 0 {
		return models.RouteStep{}, false, fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}

	if *s.Distance < 0 || *s.Duration < 0 {
		return models.RouteStep{}, false, fmt.Errorf("negative distance or duration")
	}

	maneuver := models.Maneuver(*s.Type)
	if maneuver == models.ManeuverArrive {
		return models.RouteStep{}, false, nil
	}

	if s.Maneuver == nil || len(s.Maneuver.Location) < 2 {
		return models.RouteStep{}, false, fmt.Errorf("missing maneuver location")
	}
	location, err := fromLonLat(s.Maneuver.Location)
	if err != nil {
		return models.RouteStep{}, false, fmt.Errorf("maneuver location: %w", err)
	}

	return models.RouteStep{
		Duration:    *s.Duration,
		Length:      *s.Distance,
		Maneuver:    maneuver,
		Instruction: *s.Instruction,
		Location:    location,
	}, true, nil
}
