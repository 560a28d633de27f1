// Package config loads the openroute settings from .env files, an optional
// YAML file and the environment, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kass/go-openroute/pkg/routing"
	"github.com/kass/go-openroute/pkg/tracing"
)

// DefaultFile is read when no config path is given. It may be missing.
const DefaultFile = "openroute.yaml"

// Environment variables
const (
	EnvAPIKey         = "ORS_API_KEY"
	EnvBaseURL        = "ORS_BASE_URL"
	EnvConnectTimeout = "ORS_CONNECT_TIMEOUT"
	EnvRequestTimeout = "ORS_REQUEST_TIMEOUT"
	EnvLanguage       = "ORS_LANGUAGE"
	EnvListenAddr     = "OPENROUTE_LISTEN_ADDR"
	EnvLogLevel       = "OPENROUTE_LOG_LEVEL"
	EnvTraceExporter  = "OPENROUTE_TRACE_EXPORTER"
	EnvTraceOutput    = "OPENROUTE_TRACE_OUTPUT"
)

// Config is the complete application configuration
type Config struct {
	// ORS is validated by routing.NewClient, commands that never call the
	// service do not need an API key.
	ORS     routing.Config `yaml:"ors" validate:"-"`
	Server  ServerConfig   `yaml:"server"`
	Log     LogConfig      `yaml:"log"`
	Tracing tracing.Config `yaml:"tracing"`
}

type ServerConfig struct {
	ListenAddr     string        `yaml:"listen_addr" validate:"required"`
	AllowedOrigins []string      `yaml:"allowed_origins" validate:"dive,required"`
	RouteTimeout   time.Duration `yaml:"route_timeout" validate:"gte=0"`
}

type LogConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		ORS: routing.DefaultConfig(),
		Server: ServerConfig{
			ListenAddr:     ":8080",
			AllowedOrigins: []string{"http://localhost:5173"},
			RouteTimeout:   45 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		Tracing: tracing.Config{
			ServiceName: "openroute",
			Exporter:    tracing.ExporterNone,
		},
	}
}

// Load builds the configuration. An empty path reads DefaultFile if it
// exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	// Load base .env first, then .env.local which overrides it
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.readFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the server and log settings
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v, ok := lookup(EnvAPIKey); ok {
		c.ORS.APIKey = v
	}
	if v, ok := lookup(EnvBaseURL); ok {
		c.ORS.BaseURL = v
	}
	if v, ok := lookup(EnvLanguage); ok {
		c.ORS.Language = routing.ParseLanguage(v)
	}
	if v, ok := lookup(EnvListenAddr); ok {
		c.Server.ListenAddr = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := lookup(EnvTraceExporter); ok {
		c.Tracing.Exporter = strings.ToLower(v)
	}
	if v, ok := lookup(EnvTraceOutput); ok {
		c.Tracing.Output = v
	}

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{EnvConnectTimeout, &c.ORS.ConnectTimeout},
		{EnvRequestTimeout, &c.ORS.RequestTimeout},
	}
	for _, d := range durations {
		v, ok := lookup(d.key)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.target = parsed
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
