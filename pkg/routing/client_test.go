package routing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kass/go-openroute/pkg/geo"
)

var testWaypoints = []geo.Coordinate{
	geo.MustNew(49.41461, 8.681495),
	geo.MustNew(49.420318, 8.687872),
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()

	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = baseURL
	cfg.Language = English

	client, err := NewClient(cfg, opts...)
	require.NoError(t, err)
	return client
}

func TestNewClientValidation(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing api key", func(c *Config) { c.APIKey = "" }},
		{"missing base url", func(c *Config) { c.BaseURL = "" }},
		{"relative base url", func(c *Config) { c.BaseURL = "not a url" }},
		{"negative timeout", func(c *Config) { c.ConnectTimeout = -time.Second }},
		{"unknown language", func(c *Config) { c.Language = "it" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.APIKey = "key"
			tc.mutate(&cfg)

			client, err := NewClient(cfg)
			assert.Error(t, err)
			assert.Nil(t, client)
		})
	}
}

func TestNewClientLanguageFromEnv(t *testing.T) {
	t.Setenv("LC_ALL", "de_DE.UTF-8")

	cfg := DefaultConfig()
	cfg.APIKey = "key"
	client, err := NewClient(cfg)
	require.NoError(t, err)
	assert.Equal(t, German, client.Language())

	client, err = NewClient(cfg, WithLanguage(Spanish))
	require.NoError(t, err)
	assert.Equal(t, Spanish, client.Language())
}

func TestComputeRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/directions/cycling-regular/json", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		data, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		var body directionsRequest
		assert.NoError(t, json.Unmarshal(data, &body))
		if assert.Len(t, body.Coordinates, 2) {
			assert.InDelta(t, 8.681495, body.Coordinates[0][0], 1e-9)
			assert.InDelta(t, 49.41461, body.Coordinates[0][1], 1e-9)
		}
		assert.Equal(t, English, body.Language)
		assert.Equal(t, "km", body.Units)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, heidelbergResponse)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	route, err := client.ComputeRoute(context.Background(), testWaypoints, Bicycle)
	require.NoError(t, err)

	assert.True(t, route.OK())
	assert.Len(t, route.Steps, 2)
	assert.InDelta(t, 1.408, route.Length, 1e-9)
}

func TestComputeRouteInvalidInput(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	testCases := []struct {
		name      string
		waypoints []geo.Coordinate
		profile   Profile
	}{
		{"no waypoints", nil, Car},
		{"single waypoint", testWaypoints[:1], Car},
		{"unknown profile", testWaypoints, Profile(42)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			route, err := client.ComputeRoute(context.Background(), tc.waypoints, tc.profile)
			assert.Nil(t, route)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	assert.Equal(t, int32(0), hits.Load())
}

func TestComputeRouteServiceError(t *testing.T) {
	testCases := []struct {
		name     string
		status   int
		body     string
		expected string
	}{
		{
			name:     "ors error object",
			status:   http.StatusBadRequest,
			body:     `{"error":{"code":2010,"message":"Could not find routable point within a radius of 350.0 meters"}}`,
			expected: "Could not find routable point within a radius of 350.0 meters (code 2010)",
		},
		{
			name:     "plain error string",
			status:   http.StatusForbidden,
			body:     `{"error":"Access to this API has been disallowed"}`,
			expected: "Access to this API has been disallowed",
		},
		{
			name:     "html body",
			status:   http.StatusBadGateway,
			body:     "<html>bad gateway</html>",
			expected: "<html>bad gateway</html>",
		},
		{
			name:     "empty body",
			status:   http.StatusServiceUnavailable,
			expected: "Service Unavailable",
		},
		{
			name:     "long body cut on a rune boundary",
			status:   http.StatusBadGateway,
			body:     "x" + strings.Repeat("ß", 400),
			expected: "x" + strings.Repeat("ß", 255) + "...",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)
			route, err := client.ComputeRoute(context.Background(), testWaypoints, Car)
			assert.Nil(t, route)
			require.ErrorIs(t, err, ErrService)

			var rerr *Error
			require.True(t, errors.As(err, &rerr))
			assert.Equal(t, tc.status, rerr.StatusCode)
			assert.Equal(t, tc.expected, rerr.Message)
			assert.True(t, utf8.ValidString(rerr.Message))
		})
	}
}

func TestTruncateMessage(t *testing.T) {
	assert.Equal(t, "short", truncateMessage("short", 10))
	assert.Equal(t, "abc...", truncateMessage("abcdef", 3))
	assert.Equal(t, "a...", truncateMessage("aßc", 2), "ß would be split at byte 2")
	assert.Equal(t, "...", truncateMessage("日本", 2))
}

func TestComputeRouteParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"routes":[{"segments":[{"distance":1,"duration":1,"steps":[]}]}]}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	route, err := client.ComputeRoute(context.Background(), testWaypoints, Walking)
	assert.Nil(t, route)
	assert.ErrorIs(t, err, ErrParse)
	assert.Equal(t, KindParseError, KindOf(err))
}

func TestComputeRouteTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client := newTestClient(t, baseURL)
	route, err := client.ComputeRoute(context.Background(), testWaypoints, Car)
	assert.Nil(t, route)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestComputeRouteCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the server only sees the client hang up once the body is consumed
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	route, err := client.ComputeRoute(ctx, testWaypoints, Car)
	assert.Nil(t, route)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestComputeRouteConcurrent(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, heidelbergResponse)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(p Profile) {
			defer wg.Done()
			route, err := client.ComputeRoute(context.Background(), testWaypoints, p)
			if err == nil && !route.OK() {
				err = errors.New("route not ok")
			}
			errs <- err
		}(Profiles()[i%3])
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(workers), hits.Load())
}

func TestComputeRouteLogsFailureOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	core, logs := observer.New(zapcore.InfoLevel)
	client := newTestClient(t, server.URL, WithLogger(zap.New(core)))

	_, err := client.ComputeRoute(context.Background(), testWaypoints, Car)
	require.Error(t, err)

	entries := logs.FilterMessage("route request failed").All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, "service_error", fields["kind"])
	assert.Equal(t, "car", fields["profile"])
	assert.EqualValues(t, http.StatusInternalServerError, fields["status"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestComputeRouteTracing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	client := newTestClient(t, server.URL, WithTracerProvider(tp))
	_, err := client.ComputeRoute(context.Background(), testWaypoints, Bicycle)
	require.ErrorIs(t, err, ErrService)

	var root sdktrace.ReadOnlySpan
	for _, span := range recorder.Ended() {
		if span.Name() == "routing.ComputeRoute" {
			root = span
		}
	}
	require.NotNil(t, root, "client span recorded")

	assert.Equal(t, codes.Error, root.Status().Code)
	assert.Equal(t, "service_error", root.Status().Description)

	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range root.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "cycling-regular", attrs["ors.profile"].AsString())
	assert.Equal(t, int64(2), attrs["ors.waypoints"].AsInt64())
	assert.Equal(t, int64(http.StatusInternalServerError), attrs["http.status_code"].AsInt64())

	var recordedError bool
	for _, event := range root.Events() {
		if event.Name == "exception" {
			recordedError = true
		}
	}
	assert.True(t, recordedError)

	// the HTTP transport span is a child of the client span
	var transportSpans int
	for _, span := range recorder.Ended() {
		if span.Parent().SpanID() == root.SpanContext().SpanID() {
			transportSpans++
		}
	}
	assert.Equal(t, 1, transportSpans)
}

func TestComputeRouteTracingSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, heidelbergResponse)
	}))
	defer server.Close()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	client := newTestClient(t, server.URL, WithTracerProvider(tp))
	_, err := client.ComputeRoute(context.Background(), testWaypoints, Car)
	require.NoError(t, err)

	for _, span := range recorder.Ended() {
		assert.NotEqual(t, codes.Error, span.Status().Code, span.Name())
	}
}
