// Package geo provides the geographic coordinate type shared by the routing
// client, the step index and the command line tools.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// EarthRadius is the mean earth radius in km.
	EarthRadius = 6371.0

	maxLatitude  = 90.0
	maxLongitude = 180.0
)

// ErrOutOfRange is returned when a latitude or longitude exceeds its bounds.
var ErrOutOfRange = errors.New("coordinate out of range")

// Coordinate is an immutable latitude/longitude pair. Angles are kept in
// radians and exposed in degrees.
type Coordinate struct {
	lat float64
	lon float64
}

// New creates a coordinate from degree values.
func New(latitude, longitude float64) (Coordinate, error) {
	if math.IsNaN(latitude) || math.Abs(latitude) > maxLatitude {
		return Coordinate{}, fmt.Errorf("latitude %v: %w", latitude, ErrOutOfRange)
	}
	if math.IsNaN(longitude) || math.Abs(longitude) > maxLongitude {
		return Coordinate{}, fmt.Errorf("longitude %v: %w", longitude, ErrOutOfRange)
	}

	return Coordinate{
		lat: toRadians(latitude),
		lon: toRadians(longitude),
	}, nil
}

// MustNew is like New but panics on invalid input. Intended for constants
// and tests.
func MustNew(latitude, longitude float64) Coordinate {
	c, err := New(latitude, longitude)
	if err != nil {
		panic(err)
	}
	return c
}

// Parse reads a coordinate from user supplied decimal strings. Both "." and
// "," are accepted as decimal separator. Any parse or range failure yields
// false; partial values are never returned.
func Parse(latitude, longitude string) (Coordinate, bool) {
	lat, ok := parseDecimal(latitude)
	if !ok {
		return Coordinate{}, false
	}
	lon, ok := parseDecimal(longitude)
	if !ok {
		return Coordinate{}, false
	}

	c, err := New(lat, lon)
	if err != nil {
		return Coordinate{}, false
	}
	return c, true
}

// ParsePair reads a "lat,lon" or "lat;lon" pair as typed on a command line.
// With a comma decimal separator the pair must be split by ';' or a space.
func ParsePair(s string) (Coordinate, bool) {
	s = strings.TrimSpace(s)
	for _, sep := range []string{";", " ", ","} {
		parts := strings.Split(s, sep)
		if len(parts) != 2 {
			continue
		}
		if c, ok := Parse(parts[0], parts[1]); ok {
			return c, true
		}
	}
	return Coordinate{}, false
}

// ParseDegrees reads a single decimal value with "." or "," as separator.
func ParseDegrees(s string) (float64, bool) {
	return parseDecimal(s)
}

func parseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	separators := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' || r == ',':
			separators++
		case (r == '-' || r == '+') && i == 0:
		default:
			return 0, false
		}
	}
	if separators > 1 {
		return 0, false
	}

	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Latitude returns the latitude in degrees.
func (c Coordinate) Latitude() float64 {
	return toDegrees(c.lat)
}

// Longitude returns the longitude in degrees.
func (c Coordinate) Longitude() float64 {
	return toDegrees(c.lon)
}

// DistanceTo returns the great-circle distance to other in km. Both points
// are projected onto a sphere and the central angle is taken from the dot
// product of the two vectors.
func (c Coordinate) DistanceTo(other Coordinate) float64 {
	if c == other {
		return 0
	}

	p1, p2 := c.toSpace(EarthRadius), other.toSpace(EarthRadius)

	var alpha float64
	for i := range p1 {
		alpha += p1[i] * p2[i]
	}
	alpha /= EarthRadius * EarthRadius

	// rounding can push the cosine just outside acos' domain
	alpha = math.Max(-1, math.Min(1, alpha))
	return math.Acos(alpha) * EarthRadius
}

func (c Coordinate) toSpace(r float64) [3]float64 {
	return [3]float64{
		r * math.Cos(c.lat) * math.Cos(c.lon),
		r * math.Cos(c.lat) * math.Sin(c.lon),
		r * math.Sin(c.lat),
	}
}

// String returns "<longitude>,<latitude>" with fixed precision.
func (c Coordinate) String() string {
	return fmt.Sprintf("%f,%f", c.Longitude(), c.Latitude())
}

// DMS formats the coordinate for display, e.g. "49° 24' 53'' N, 8° 40' 53'' E".
// Seconds are formatted by ToDegreeMinutesSeconds and may read 60.
func (c Coordinate) DMS() string {
	return c.formatDMS(ToDegreeMinutesSeconds)
}

// DMSCarry is DMS with ToDegreeMinutesSecondsCarry, seconds stay below 60.
func (c Coordinate) DMSCarry() string {
	return c.formatDMS(ToDegreeMinutesSecondsCarry)
}

func (c Coordinate) formatDMS(format func(float64) string) string {
	latHemisphere, lonHemisphere := "N", "E"
	if c.lat < 0 {
		latHemisphere = "S"
	}
	if c.lon < 0 {
		lonHemisphere = "W"
	}

	return fmt.Sprintf("%s %s, %s %s",
		format(math.Abs(c.Latitude())), latHemisphere,
		format(math.Abs(c.Longitude())), lonHemisphere)
}

type jsonCoordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// MarshalJSON encodes the coordinate as {"lat":..,"lon":..} in degrees.
func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonCoordinate{Lat: c.Latitude(), Lon: c.Longitude()})
}

// UnmarshalJSON decodes {"lat":..,"lon":..} and validates the range.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	var raw jsonCoordinate
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := New(raw.Lat, raw.Lon)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func toDegrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
