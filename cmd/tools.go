package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kass/go-openroute/pkg/geo"
)

var (
	carrySeconds bool
	geohashChars uint
)

var distanceCmd = &cobra.Command{
	Use:   "distance <lat,lon> <lat,lon>",
	Short: "Great-circle distance between two coordinates",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		coords, err := parseCoordinates(args)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%.3f km\n", coords[0].DistanceTo(coords[1]))
		return nil
	},
}

var dmsCmd = &cobra.Command{
	Use:   "dms <degrees|lat,lon>...",
	Short: "Format decimal degrees as degrees, minutes and seconds",
	Long: `Format a single value or a lat,lon pair as degrees, minutes and seconds.
A single value may use a decimal comma ("40,5" is 40.5°). Pairs with a decimal
comma are separated by ';' or a space ("49,41;8,68").`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, arg := range args {
			out, err := formatDMS(arg, carrySeconds)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
		}
		return nil
	},
}

var geohashCmd = &cobra.Command{
	Use:   "geohash <lat,lon|hash>",
	Short: "Encode a coordinate as geohash or decode a geohash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := convertGeohash(args[0], geohashChars)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	dmsCmd.Flags().BoolVar(&carrySeconds, "carry", false, "Carry 60 seconds into the next minute")
	geohashCmd.Flags().UintVar(&geohashChars, "chars", 9, "Geohash length when encoding")
}

// formatDMS accepts a single value in degrees or a lat,lon pair. A single
// decimal wins over a pair, so "40,5" is 40.5°.
func formatDMS(arg string, carry bool) (string, error) {
	if deg, ok := geo.ParseDegrees(arg); ok {
		if carry {
			return geo.ToDegreeMinutesSecondsCarry(deg), nil
		}
		return geo.ToDegreeMinutesSeconds(deg), nil
	}

	c, ok := geo.ParsePair(arg)
	if !ok {
		return "", fmt.Errorf("invalid degrees or coordinate %q", arg)
	}
	if carry {
		return c.DMSCarry(), nil
	}
	return c.DMS(), nil
}

func convertGeohash(arg string, chars uint) (string, error) {
	if c, ok := geo.ParsePair(arg); ok {
		if chars < 1 || chars > 12 {
			return "", fmt.Errorf("geohash length must be between 1 and 12, got %d", chars)
		}
		return c.Geohash(chars), nil
	}

	c, err := geo.FromGeohash(arg)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%.6f,%.6f", c.Latitude(), c.Longitude()), nil
}
