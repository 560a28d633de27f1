// Package routing computes routes with the OpenRouteService directions API.
//
// A Client turns an ordered list of waypoints and a travel profile into one
// POST request and parses the answer into a models.Route. The call is
// blocking and all-or-nothing: either a complete route with StatusOK or an
// *Error is returned. Clients hold no per-call state and may be shared
// between goroutines.
package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kass/go-openroute/pkg/geo"
	"github.com/kass/go-openroute/pkg/models"
)

const (
	DefaultBaseURL        = "https://api.openrouteservice.org"
	DefaultConnectTimeout = 2 * time.Second
	DefaultRequestTimeout = 30 * time.Second

	maxResponseBytes = 16 << 20
	maxErrorBytes    = 64 << 10
	maxErrorMessage  = 512
	tracerName       = "github.com/kass/go-openroute/pkg/routing"
)

// Config holds the connection settings of a Client.
type Config struct {
	APIKey         string        `yaml:"api_key" validate:"required"`
	BaseURL        string        `yaml:"base_url" validate:"required,url"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" validate:"gte=0"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gte=0"`
	// Language of the instructions. Empty resolves it from the environment.
	Language Language `yaml:"language" validate:"omitempty,oneof=en de fr es"`
}

// DefaultConfig returns a config for the public service without API key.
func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		ConnectTimeout: DefaultConnectTimeout,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// Validate checks the config the same way NewClient does.
func (c Config) Validate() error {
	return validator.New().Struct(c)
}

// Client sends directions requests.
type Client struct {
	cfg      Config
	language Language
	http     *http.Client
	log      *zap.Logger
	provider trace.TracerProvider
	tracer   trace.Tracer
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the logger failures are reported to.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithHTTPClient replaces the default transport. The connect timeout from
// the config is not applied to a custom client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTracerProvider records the client spans, and the spans of the HTTP
// transport, with tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		c.provider = tp
	}
}

// WithLanguage overrides the instruction language.
func WithLanguage(lang Language) Option {
	return func(c *Client) {
		c.language = lang
	}
}

// NewClient validates cfg and creates a client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid routing config: %w", err)
	}

	c := &Client{
		cfg:      cfg,
		language: cfg.Language,
		log:      zap.NewNop(),
		provider: otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.tracer = c.provider.Tracer(tracerName)

	if c.language == "" {
		c.language = LanguageFromEnv()
	}
	if c.http == nil {
		c.http = newHTTPClient(cfg, c.provider)
	}
	return c, nil
}

// newHTTPClient builds a client with a bounded connect timeout. Keep-alives
// are off so every call owns, and releases, its own connection.
func newHTTPClient(cfg Config, tp trace.TracerProvider) *http.Client {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableKeepAlives:   true,
	}

	return &http.Client{
		Transport: otelhttp.NewTransport(transport, otelhttp.WithTracerProvider(tp)),
		Timeout:   cfg.RequestTimeout,
	}
}

// Language returns the instruction language sent with every request.
func (c *Client) Language() Language {
	return c.language
}

// ComputeRoute requests a route through the given waypoints. At least two
// waypoints are required. Any failure is returned as *Error and no route.
func (c *Client) ComputeRoute(ctx context.Context, waypoints []geo.Coordinate, profile Profile) (*models.Route, error) {
	log := c.log.With(
		zap.String("request_id", uuid.NewString()),
		zap.Stringer("profile", profile),
		zap.Int("waypoints", len(waypoints)),
	)

	ctx, span := c.tracer.Start(ctx, "routing.ComputeRoute", trace.WithAttributes(
		attribute.String("ors.profile", profile.Code()),
		attribute.Int("ors.waypoints", len(waypoints)),
	))
	defer span.End()

	// building request
	if len(waypoints) < 2 {
		return nil, c.fail(log, span, invalidInput(fmt.Sprintf("at least two waypoints are required, got %d", len(waypoints)), nil))
	}
	endpoint, err := profile.Endpoint(c.cfg.BaseURL)
	if err != nil {
		return nil, c.fail(log, span, invalidInput("unsupported profile", err))
	}

	body, err := json.Marshal(newDirectionsRequest(waypoints, c.language))
	if err != nil {
		return nil, c.fail(log, span, invalidInput("encode request", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, c.fail(log, span, transportError("create request", err))
	}
	req.Header.Set("Authorization", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	// sending and awaiting response
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.fail(log, span, transportError("send request", err))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		return nil, c.fail(log, span, serviceError(resp.StatusCode, readServiceError(resp)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.fail(log, span, transportError("read response", err))
	}
	if err := ctx.Err(); err != nil {
		return nil, c.fail(log, span, transportError("cancelled before parsing", err))
	}

	// parsing
	route, err := parseRoute(data)
	if err != nil {
		return nil, c.fail(log, span, parseError(err))
	}

	log.Debug("route computed",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("steps", len(route.Steps)),
		zap.Float64("length_km", route.Length),
		zap.Float64("duration_s", route.Duration),
	)
	return route, nil
}

func (c *Client) fail(log *zap.Logger, span trace.Span, err *Error) error {
	fields := []zap.Field{zap.Stringer("kind", err.Kind), zap.Error(err)}
	if err.StatusCode != 0 {
		fields = append(fields, zap.Int("status", err.StatusCode))
	}

	if err.Kind == KindInvalidInput {
		log.Warn("route request rejected", fields...)
	} else {
		log.Error("route request failed", fields...)
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Kind.String())
	return err
}

// readServiceError extracts the message from an error body. The service
// answers either {"error":{"code":..,"message":".."}} or {"error":".."}.
func readServiceError(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return http.StatusText(resp.StatusCode)
	}

	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && len(body.Error) > 0 {
		var detailed struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body.Error, &detailed) == nil && detailed.Message != "" {
			if detailed.Code != 0 {
				return fmt.Sprintf("%s (code %d)", detailed.Message, detailed.Code)
			}
			return detailed.Message
		}
		var plain string
		if json.Unmarshal(body.Error, &plain) == nil && plain != "" {
			return plain
		}
	}

	return truncateMessage(strings.TrimSpace(string(data)), maxErrorMessage)
}

// truncateMessage cuts msg to at most limit bytes without splitting a rune
func truncateMessage(msg string, limit int) string {
	if len(msg) <= limit {
		return msg
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + "..."
}
