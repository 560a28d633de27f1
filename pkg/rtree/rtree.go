// Package rtree implements an R-Tree index over the steps of a route, used to
// find the instructions inside a viewport or near the current position
package rtree

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dhconnelly/rtreego"

	"github.com/kass/go-openroute/pkg/geo"
	"github.com/kass/go-openroute/pkg/models"
)

const (
	tolerance   = 1e-6
	minChildren = 2
	maxChildren = 8
	dimensions  = 2
)

// ErrNoRoute is returned when an index is built from a route that did not
// parse completely
var ErrNoRoute = errors.New("route is not ok")

// Match is a step found by a query. Distance is in km from the query
// center and zero for box queries.
type Match struct {
	Index    int              `json:"index"`
	Step     models.RouteStep `json:"step"`
	Distance float64          `json:"distance"`
}

// spatialStep wraps a step to implement rtreego.Spatial interface
type spatialStep struct {
	index int
	step  models.RouteStep
	rect  *rtreego.Rect
}

func (s *spatialStep) Bounds() *rtreego.Rect {
	return s.rect
}

// StepIndex is a thread-safe spatial index over the steps of one route
type StepIndex struct {
	tree      *rtreego.Rtree
	steps     []models.RouteStep
	mu        sync.RWMutex
	itemCount atomic.Int64
}

// NewStepIndex indexes every step of route by its maneuver location
func NewStepIndex(route *models.Route) (*StepIndex, error) {
	if !route.OK() {
		return nil, ErrNoRoute
	}

	idx := &StepIndex{}
	idx.Reset(route.Steps)
	return idx, nil
}

// Reset replaces the indexed steps
func (s *StepIndex) Reset(steps []models.RouteStep) {
	tree := rtreego.NewTree(dimensions, minChildren, maxChildren)
	for i, step := range steps {
		p := rtreego.Point{step.Location.Latitude(), step.Location.Longitude()}
		tree.Insert(&spatialStep{index: i, step: step, rect: p.ToRect(tolerance)})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tree = tree
	s.steps = append([]models.RouteStep(nil), steps...)
	s.itemCount.Store(int64(len(steps)))
}

// Count returns the number of indexed steps
func (s *StepIndex) Count() int64 {
	return s.itemCount.Load()
}

// QueryBox returns the steps inside box in travel order. A box whose west
// edge lies east of its east edge wraps across the antimeridian.
func (s *StepIndex) QueryBox(box models.BoundingBox) ([]Match, error) {
	if box.TopRight.Lat < box.BottomLeft.Lat {
		return nil, fmt.Errorf("invalid bounding box: top right %v below bottom left %v", box.TopRight, box.BottomLeft)
	}

	rects, err := searchRects(box)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]Match, 0)
	for _, item := range s.searchIntersect(rects) {
		// strict boundary check, the tree works on padded rects
		if box.Contains(models.LocationOf(item.step.Location)) {
			matches = append(matches, Match{Index: item.index, Step: item.step})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Index < matches[j].Index })
	return matches, nil
}

// QueryRadius returns the steps within radiusKm of center, closest first
func (s *StepIndex) QueryRadius(center geo.Coordinate, radiusKm float64) ([]Match, error) {
	if radiusKm < 0 || math.IsNaN(radiusKm) {
		return nil, fmt.Errorf("invalid radius %v", radiusKm)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := s.within(center, radiusKm)
	if err != nil {
		return nil, err
	}
	sortByDistance(matches)
	return matches, nil
}

// Nearest returns up to n steps closest to center by great-circle distance
func (s *StepIndex) Nearest(center geo.Coordinate, n int) []Match {
	if n <= 0 {
		return []Match{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// The tree ranks by planar degrees, which is not the order on the
	// sphere. Its n candidates still prove that n steps lie within the
	// farthest candidate's distance, so that radius holds the true n nearest.
	queryPoint := rtreego.Point{center.Latitude(), center.Longitude()}
	found, bound := 0, 0.0
	for _, result := range s.tree.NearestNeighbors(n, queryPoint) {
		item, ok := result.(*spatialStep)
		if !ok || item == nil {
			continue
		}
		found++
		bound = math.Max(bound, center.DistanceTo(item.step.Location))
	}
	if found == 0 {
		return []Match{}
	}

	matches, err := s.within(center, bound)
	if err != nil {
		return []Match{}
	}
	sortByDistance(matches)
	if len(matches) > n {
		matches = matches[:n]
	}
	return matches
}

// within collects the steps at most radiusKm from center. Callers hold mu.
func (s *StepIndex) within(center geo.Coordinate, radiusKm float64) ([]Match, error) {
	rects, err := searchRects(capBox(center, radiusKm))
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0)
	for _, item := range s.searchIntersect(rects) {
		// Filter by actual distance
		dist := center.DistanceTo(item.step.Location)
		if dist <= radiusKm {
			matches = append(matches, Match{Index: item.index, Step: item.step, Distance: dist})
		}
	}
	return matches, nil
}

// searchIntersect returns every step touching one of rects, each once.
// Callers hold mu.
func (s *StepIndex) searchIntersect(rects []*rtreego.Rect) []*spatialStep {
	seen := make(map[int]struct{})
	items := make([]*spatialStep, 0)
	for _, rect := range rects {
		for _, result := range s.tree.SearchIntersect(rect) {
			item, ok := result.(*spatialStep)
			if !ok {
				continue
			}
			if _, dup := seen[item.index]; dup {
				continue
			}
			seen[item.index] = struct{}{}
			items = append(items, item)
		}
	}
	return items
}

// LegsBetween splits the route into one leg per pair of consecutive
// waypoints. The first waypoint starts at the first step and the last one
// ends after the final step; waypoints in between are snapped to their
// nearest step, never moving backwards along the route.
func (s *StepIndex) LegsBetween(waypoints []geo.Coordinate) ([]models.Leg, error) {
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("at least two waypoints are required, got %d", len(waypoints))
	}
	if s.Count() == 0 {
		return nil, fmt.Errorf("index is empty")
	}

	nodes := make([]int, len(waypoints))
	for i := 1; i < len(waypoints)-1; i++ {
		nearest := s.Nearest(waypoints[i], 1)
		node := nodes[i-1]
		if len(nearest) == 1 && nearest[0].Index > node {
			node = nearest[0].Index
		}
		nodes[i] = node
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes[len(nodes)-1] = len(s.steps)
	return models.LegsForNodes(s.steps, nodes), nil
}

// capBox is the smallest lat/lon box around the spherical cap of radiusKm
// at center. The result crosses the antimeridian when the cap does.
func capBox(center geo.Coordinate, radiusKm float64) models.BoundingBox {
	lat, lon := center.Latitude(), center.Longitude()
	angular := radiusKm / geo.EarthRadius
	latDeg := angular*180/math.Pi + tolerance

	south, north := lat-latDeg, lat+latDeg
	full := models.BoundingBox{
		BottomLeft: models.Location{Lat: math.Max(south, -90), Lon: -180},
		TopRight:   models.Location{Lat: math.Min(north, 90), Lon: 180},
	}
	// a cap holding a pole reaches every longitude
	if angular >= math.Pi/2 || south <= -90 || north >= 90 {
		return full
	}

	ratio := math.Sin(angular) / math.Cos(lat*math.Pi/180)
	if ratio >= 1 {
		return full
	}
	lonDeg := math.Asin(ratio)*180/math.Pi + tolerance
	if lonDeg >= 180 {
		return full
	}

	west, east := lon-lonDeg, lon+lonDeg
	if west < -180 {
		west += 360
	}
	if east > 180 {
		east -= 360
	}
	return models.BoundingBox{
		BottomLeft: models.Location{Lat: south, Lon: west},
		TopRight:   models.Location{Lat: north, Lon: east},
	}
}

// searchRects covers box with one rect, or with one rect on each side of
// the antimeridian
func searchRects(box models.BoundingBox) ([]*rtreego.Rect, error) {
	if !box.CrossesAntimeridian() {
		rect, err := searchRect(box)
		if err != nil {
			return nil, err
		}
		return []*rtreego.Rect{rect}, nil
	}

	west, east := box, box
	west.TopRight.Lon = 180
	east.BottomLeft.Lon = -180

	rects := make([]*rtreego.Rect, 0, 2)
	for _, part := range []models.BoundingBox{west, east} {
		rect, err := searchRect(part)
		if err != nil {
			return nil, err
		}
		rects = append(rects, rect)
	}
	return rects, nil
}

func searchRect(box models.BoundingBox) (*rtreego.Rect, error) {
	bottomLeft := rtreego.Point{box.BottomLeft.Lat, box.BottomLeft.Lon}
	rectSize := []float64{
		math.Max(box.TopRight.Lat-box.BottomLeft.Lat, tolerance),
		math.Max(box.TopRight.Lon-box.BottomLeft.Lon, tolerance),
	}

	bounds, err := rtreego.NewRect(bottomLeft, rectSize)
	if err != nil {
		return nil, fmt.Errorf("failed to build search rect: %w", err)
	}
	return bounds, nil
}

func sortByDistance(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance == matches[j].Distance {
			return matches[i].Index < matches[j].Index
		}
		return matches[i].Distance < matches[j].Distance
	})
}
