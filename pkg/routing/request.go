package routing

import "github.com/kass/go-openroute/pkg/geo"

type directionsRequest struct {
	Coordinates        [][2]float64 `json:"coordinates"`
	Instructions       bool         `json:"instructions"`
	InstructionsFormat string       `json:"instructions_format"`
	Language           Language     `json:"language"`
	Maneuvers          bool         `json:"maneuvers"`
	Units              string       `json:"units"`
}

func newDirectionsRequest(waypoints []geo.Coordinate, lang Language) directionsRequest {
	coordinates := make([][2]float64, len(waypoints))
	for i, w := range waypoints {
		coordinates[i] = lonLat(w)
	}

	return directionsRequest{
		Coordinates:        coordinates,
		Instructions:       true,
		InstructionsFormat: "text",
		Language:           lang,
		Maneuvers:          true,
		Units:              "km",
	}
}

// lonLat is the only place where a coordinate is flipped into the
// service's [longitude, latitude] order.
func lonLat(c geo.Coordinate) [2]float64 {
	return [2]float64{c.Longitude(), c.Latitude()}
}

// fromLonLat reads a [longitude, latitude] pair back into a coordinate.
func fromLonLat(pair []float64) (geo.Coordinate, error) {
	return geo.New(pair[1], pair[0])
}
