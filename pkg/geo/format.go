package geo

import (
	"fmt"
	"math"
	"strings"

	"github.com/mmcloughlin/geohash"
)

const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// ToDegreeMinutesSeconds formats an angle given in degrees as "D° M' S''".
// Whole degrees are truncated, minutes floored and seconds rounded. A
// seconds value that rounds up to 60 is printed as is, see
// ToDegreeMinutesSecondsCarry for the normalized form.
func ToDegreeMinutesSeconds(degrees float64) string {
	sign, d, m, s := splitDMS(degrees)
	return fmt.Sprintf("%s%d° %d' %d''", sign, d, m, s)
}

// ToDegreeMinutesSecondsCarry is ToDegreeMinutesSeconds with 60 seconds
// carried into the minutes and 60 minutes into the degrees.
func ToDegreeMinutesSecondsCarry(degrees float64) string {
	sign, d, m, s := splitDMS(degrees)
	if s == 60 {
		s = 0
		m++
	}
	if m == 60 {
		m = 0
		d++
	}
	return fmt.Sprintf("%s%d° %d' %d''", sign, d, m, s)
}

func splitDMS(degrees float64) (sign string, d, m, s int) {
	if degrees < 0 {
		sign = "-"
		degrees = -degrees
	}

	whole := math.Trunc(degrees)
	minutes := 60.0 * (degrees - whole)
	fullMinutes := math.Floor(minutes)
	seconds := math.Round(60.0 * (minutes - fullMinutes))

	return sign, int(whole), int(fullMinutes), int(seconds)
}

// Geohash encodes the coordinate with the given number of characters.
func (c Coordinate) Geohash(chars uint) string {
	return geohash.EncodeWithPrecision(c.Latitude(), c.Longitude(), chars)
}

// FromGeohash decodes the center of a geohash cell.
func FromGeohash(hash string) (Coordinate, error) {
	if hash == "" {
		return Coordinate{}, fmt.Errorf("empty geohash")
	}
	for _, r := range hash {
		if !strings.ContainsRune(geohashAlphabet, r) {
			return Coordinate{}, fmt.Errorf("invalid geohash character %q", r)
		}
	}

	lat, lon := geohash.DecodeCenter(hash)
	return New(lat, lon)
}
