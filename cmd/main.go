package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kass/go-openroute/pkg/config"
	"github.com/kass/go-openroute/pkg/geo"
	"github.com/kass/go-openroute/pkg/logger"
	"github.com/kass/go-openroute/pkg/routing"
)

var (
	configFile string
	apiKey     string
	verbose    bool
)

var (
	// ANSI color codes
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

var rootCmd = &cobra.Command{
	Use:   "openroute",
	Short: "Route planning with the OpenRouteService directions API",
	Long: `Compute car, bicycle and walking routes between coordinates with the
OpenRouteService directions API, inspect their steps and serve them over HTTP.`,
	SilenceUsage: true,
}

func init() {
	// Disable colors if not in a terminal
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		colorReset = ""
		colorRed = ""
		colorGreen = ""
		colorYellow = ""
		colorCyan = ""
		colorBold = ""
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file path (default openroute.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "OpenRouteService API key (overrides "+config.EnvAPIKey+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(routeCmd, nearestCmd, distanceCmd, dmsCmd, geohashCmd, benchCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s%v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
}

// loadConfig reads the config and applies the global flags
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		cfg.ORS.APIKey = apiKey
	}
	if verbose {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
	}
	return cfg, nil
}

// newClient builds the routing client and the logger it reports to
func newClient(cfg *config.Config, opts ...routing.Option) (*routing.Client, *zap.Logger, error) {
	log, err := logger.NewNamed(cfg.Log.Level, cfg.Log.Development, "openroute")
	if err != nil {
		return nil, nil, err
	}

	client, err := routing.NewClient(cfg.ORS, append([]routing.Option{routing.WithLogger(log)}, opts...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (set %s or --api-key)", err, config.EnvAPIKey)
	}
	return client, log, nil
}

// parseCoordinates reads "lat,lon" arguments
func parseCoordinates(args []string) ([]geo.Coordinate, error) {
	coords := make([]geo.Coordinate, 0, len(args))
	for _, arg := range args {
		c, ok := geo.ParsePair(arg)
		if !ok {
			return nil, fmt.Errorf("invalid coordinate %q, expected lat,lon", arg)
		}
		coords = append(coords, c)
	}
	return coords, nil
}

func printTitle(title string) {
	fmt.Printf("\n%s%s%s%s\n", colorBold, colorCyan, title, colorReset)
	fmt.Println(strings.Repeat("=", 60))
}

func printStat(label string, value interface{}) {
	fmt.Printf("  %s%s:%s %s%v%s\n", colorBold, label, colorReset, colorYellow, value, colorReset)
}

func printSuccess(message string) {
	fmt.Printf("%s✓ %s%s\n", colorGreen, message, colorReset)
}
