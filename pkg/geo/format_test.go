package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDegreeMinutesSeconds(t *testing.T) {
	testCases := []struct {
		degrees  float64
		expected string
	}{
		{40.34722, "40° 20' 50''"},
		{0, "0° 0' 0''"},
		{8.681495, "8° 40' 53''"},
		{-40.34722, "-40° 20' 50''"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, ToDegreeMinutesSeconds(tc.degrees))
		})
	}
}

func TestSecondsRoundingToSixty(t *testing.T) {
	// 10.99999° is 10° 59' 59.964'', which rounds to 60 seconds
	assert.Equal(t, "10° 59' 60''", ToDegreeMinutesSeconds(10.99999))
	assert.Equal(t, "11° 0' 0''", ToDegreeMinutesSecondsCarry(10.99999))

	// 5.49999° is 5° 29' 59.964''
	assert.Equal(t, "5° 29' 60''", ToDegreeMinutesSeconds(5.49999))
	assert.Equal(t, "5° 30' 0''", ToDegreeMinutesSecondsCarry(5.49999))

	// values without a carry are formatted identically
	assert.Equal(t, ToDegreeMinutesSeconds(40.34722), ToDegreeMinutesSecondsCarry(40.34722))
}

func TestGeohash(t *testing.T) {
	c := MustNew(49.41461, 8.681495)
	hash := c.Geohash(9)
	require.Len(t, hash, 9)

	decoded, err := FromGeohash(hash)
	require.NoError(t, err)
	assert.Less(t, c.DistanceTo(decoded), 0.01)

	_, err = FromGeohash("")
	assert.Error(t, err)

	_, err = FromGeohash("u0ya!")
	assert.Error(t, err)

	// 'a' is not part of the geohash alphabet
	_, err = FromGeohash("u0ya")
	assert.Error(t, err)
}
