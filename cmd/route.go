package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kass/go-openroute/pkg/geo"
	"github.com/kass/go-openroute/pkg/models"
	"github.com/kass/go-openroute/pkg/routing"
	"github.com/kass/go-openroute/pkg/rtree"
)

var (
	profileName string
	asJSON      bool
	nearAt      string
	numNearest  int
)

var routeCmd = &cobra.Command{
	Use:   "route <lat,lon> <lat,lon> [lat,lon...]",
	Short: "Compute a route through the given waypoints",
	Long:  `Compute a route through two or more waypoints and print its turn-by-turn steps.`,
	Args:  cobra.MinimumNArgs(2),
	RunE:  runRoute,
}

var nearestCmd = &cobra.Command{
	Use:   "nearest <lat,lon> <lat,lon> [lat,lon...] --at <lat,lon>",
	Short: "List the route steps nearest to a position",
	Long:  `Compute a route and list the steps closest to the given position, nearest first.`,
	Args:  cobra.MinimumNArgs(2),
	RunE:  runNearest,
}

func init() {
	for _, cmd := range []*cobra.Command{routeCmd, nearestCmd} {
		cmd.Flags().StringVarP(&profileName, "profile", "p", "car", "Travel profile: car, bicycle or walking")
	}
	routeCmd.Flags().BoolVar(&asJSON, "json", false, "Print the route as JSON")

	nearestCmd.Flags().StringVar(&nearAt, "at", "", "Position to search around (lat,lon)")
	nearestCmd.Flags().IntVarP(&numNearest, "neighbors", "n", 3, "Number of steps to list")
	_ = nearestCmd.MarkFlagRequired("at")
}

// computeRoute runs one request, cancelled on interrupt
func computeRoute(args []string) (*models.Route, []geo.Coordinate, error) {
	waypoints, err := parseCoordinates(args)
	if err != nil {
		return nil, nil, err
	}
	profile, err := routing.ParseProfile(profileName)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	client, log, err := newClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	route, err := client.ComputeRoute(ctx, waypoints, profile)
	if err != nil {
		return nil, nil, err
	}
	return route, waypoints, nil
}

func runRoute(cmd *cobra.Command, args []string) error {
	start := time.Now()
	route, _, err := computeRoute(args)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(route)
	}

	printTitle(fmt.Sprintf("Route by %s", profileName))
	printStat("Distance", fmt.Sprintf("%.2f km", route.Length))
	printStat("Duration", formatDuration(route.Duration))
	printStat("Steps", len(route.Steps))
	printStat("Computed in", time.Since(start).Round(time.Millisecond))
	fmt.Println()
	writeSteps(os.Stdout, route.Steps)
	return nil
}

func runNearest(cmd *cobra.Command, args []string) error {
	at, ok := geo.ParsePair(nearAt)
	if !ok {
		return fmt.Errorf("invalid --at coordinate %q", nearAt)
	}

	route, _, err := computeRoute(args)
	if err != nil {
		return err
	}

	index, err := rtree.NewStepIndex(route)
	if err != nil {
		return err
	}

	matches := index.Nearest(at, numNearest)
	printTitle(fmt.Sprintf("%d steps nearest to %s", len(matches), at.DMS()))
	for _, m := range matches {
		fmt.Printf("  %s%3d%s  %7.3f km  %s\n", colorBold, m.Index+1, colorReset, m.Distance, m.Step.Instruction)
	}
	return nil
}

// writeSteps prints one line per step in travel order
func writeSteps(w io.Writer, steps []models.RouteStep) {
	for i, s := range steps {
		fmt.Fprintf(w, "%3d. %-60s %7.3f km %8s  [%s]\n",
			i+1, truncate(s.Instruction, 60), s.Length, formatDuration(s.Duration), s.Maneuver)
	}
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	if d < time.Minute {
		return d.String()
	}
	return strings.TrimSuffix(d.Truncate(time.Minute).String(), "0s")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
