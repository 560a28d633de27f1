package models

import "github.com/kass/go-openroute/pkg/geo"

// RouteStatus tells whether a route may be rendered
type RouteStatus int

const (
	// StatusFailed is the zero value, a route is only OK after a full parse
	StatusFailed RouteStatus = iota
	StatusOK
)

func (s RouteStatus) String() string {
	if s == StatusOK {
		return "ok"
	}
	return "failed"
}

// MarshalText encodes the status as "ok" or "failed"
func (s RouteStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes "ok", anything else is a failed route
func (s *RouteStatus) UnmarshalText(text []byte) error {
	*s = StatusFailed
	if string(text) == "ok" {
		*s = StatusOK
	}
	return nil
}

// Maneuver is the instruction type code reported by the directions service
type Maneuver int

const (
	ManeuverLeft Maneuver = iota
	ManeuverRight
	ManeuverSharpLeft
	ManeuverSharpRight
	ManeuverSlightLeft
	ManeuverSlightRight
	ManeuverStraight
	ManeuverEnterRoundabout
	ManeuverExitRoundabout
	ManeuverUTurn
	ManeuverArrive
	ManeuverDepart
	ManeuverKeepLeft
	ManeuverKeepRight
)

var maneuverNames = map[Maneuver]string{
	ManeuverLeft:            "left",
	ManeuverRight:           "right",
	ManeuverSharpLeft:       "sharp-left",
	ManeuverSharpRight:      "sharp-right",
	ManeuverSlightLeft:      "slight-left",
	ManeuverSlightRight:     "slight-right",
	ManeuverStraight:        "straight",
	ManeuverEnterRoundabout: "enter-roundabout",
	ManeuverExitRoundabout:  "exit-roundabout",
	ManeuverUTurn:           "u-turn",
	ManeuverArrive:          "arrive",
	ManeuverDepart:          "depart",
	ManeuverKeepLeft:        "keep-left",
	ManeuverKeepRight:       "keep-right",
}

func (m Maneuver) String() string {
	if name, ok := maneuverNames[m]; ok {
		return name
	}
	return "unknown"
}

// RouteStep is a single turn instruction of a route
type RouteStep struct {
	Duration    float64        `json:"duration"` // seconds
	Length      float64        `json:"length"`   // km
	Maneuver    Maneuver       `json:"maneuver"`
	Instruction string         `json:"instruction"`
	Location    geo.Coordinate `json:"location"`
}

// Leg is the part of a route between two polyline nodes
type Leg struct {
	StartIndex int     `json:"startIndex"`
	EndIndex   int     `json:"endIndex"`
	Length     float64 `json:"length"`
	Duration   float64 `json:"duration"`
}

// Route is a parsed directions result. Only routes with StatusOK are
// complete and may be rendered.
type Route struct {
	Status      RouteStatus      `json:"status"`
	Length      float64          `json:"length"`   // km
	Duration    float64          `json:"duration"` // seconds
	BoundingBox BoundingBox      `json:"boundingBox"`
	Steps       []RouteStep      `json:"steps"`
	Polyline    []geo.Coordinate `json:"polyline"`
	Legs        []Leg            `json:"legs"`
}

// OK reports whether the route was parsed completely
func (r *Route) OK() bool {
	return r != nil && r.Status == StatusOK
}

// BuildLegs splits the route at every polyline node
func (r *Route) BuildLegs() {
	nodes := make([]int, len(r.Polyline))
	for i := range nodes {
		nodes[i] = i
	}
	r.Legs = LegsForNodes(r.Steps, nodes)
}

// LegsForNodes builds one leg per pair of consecutive node indexes. Each
// leg sums the steps from its start node up to, but excluding, its end node.
func LegsForNodes(steps []RouteStep, nodes []int) []Leg {
	if len(nodes) < 2 {
		return []Leg{}
	}

	legs := make([]Leg, 0, len(nodes)-1)
	for i := 1; i < len(nodes); i++ {
		leg := Leg{StartIndex: nodes[i-1], EndIndex: nodes[i]}
		for j := leg.StartIndex; j < leg.EndIndex && j < len(steps); j++ {
			leg.Length += steps[j].Length
			leg.Duration += steps[j].Duration
		}
		legs = append(legs, leg)
	}
	return legs
}
