package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/kass/go-openroute/pkg/config"
	"github.com/kass/go-openroute/pkg/geo"
	"github.com/kass/go-openroute/pkg/logger"
	"github.com/kass/go-openroute/pkg/routing"
)

var (
	configFile  string
	apiKey      string
	profileName string
	logFile     string
)

var rootCmd = &cobra.Command{
	Use:   "openroute-viewer <lat,lon> <lat,lon> [lat,lon...]",
	Short: "Interactive terminal route viewer",
	Long: `Compute a route through the given waypoints and browse its steps.
Switching the profile while a route is computed discards the old result.`,
	Args:         cobra.MinimumNArgs(2),
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "Config file path (default openroute.yaml if present)")
	rootCmd.Flags().StringVar(&apiKey, "api-key", "", "OpenRouteService API key (overrides "+config.EnvAPIKey+")")
	rootCmd.Flags().StringVarP(&profileName, "profile", "p", "car", "Initial travel profile: car, bicycle or walking")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	waypoints := make([]geo.Coordinate, 0, len(args))
	for _, arg := range args {
		c, ok := geo.ParsePair(arg)
		if !ok {
			return fmt.Errorf("invalid coordinate %q, expected lat,lon", arg)
		}
		waypoints = append(waypoints, c)
	}

	profile, err := routing.ParseProfile(profileName)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if apiKey != "" {
		cfg.ORS.APIKey = apiKey
	}

	// the terminal belongs to the UI, logs go to a file or nowhere
	log := zap.NewNop()
	if logFile != "" {
		log, err = logger.NewFile(cfg.Log.Level, logFile)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
	}

	client, err := routing.NewClient(cfg.ORS, routing.WithLogger(log))
	if err != nil {
		return fmt.Errorf("%w (set %s or --api-key)", err, config.EnvAPIKey)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	locale := language.Make(string(client.Language()))
	p := tea.NewProgram(newModel(ctx, client, waypoints, profile, locale), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("viewer failed: %w", err)
	}
	return nil
}
