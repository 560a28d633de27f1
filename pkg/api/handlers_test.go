package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/go-openroute/pkg/geo"
	"github.com/kass/go-openroute/pkg/models"
	"github.com/kass/go-openroute/pkg/routing"
)

type fakeRoutes struct {
	route     *models.Route
	err       error
	waypoints []geo.Coordinate
	profile   routing.Profile
	calls     int
}

func (f *fakeRoutes) ComputeRoute(ctx context.Context, waypoints []geo.Coordinate, profile routing.Profile) (*models.Route, error) {
	f.calls++
	f.waypoints = waypoints
	f.profile = profile
	if f.err != nil {
		return nil, f.err
	}
	return f.route, nil
}

func sampleRoute() *models.Route {
	route := &models.Route{
		Status:   models.StatusOK,
		Length:   1.4,
		Duration: 282,
		BoundingBox: models.BoundingBox{
			BottomLeft: models.Location{Lat: 49.41, Lon: 8.68},
			TopRight:   models.Location{Lat: 49.43, Lon: 8.70},
		},
		Steps: []models.RouteStep{
			{Length: 0.3, Duration: 79, Maneuver: models.ManeuverDepart, Instruction: "Head west", Location: geo.MustNew(49.41461, 8.681495)},
			{Length: 0.6, Duration: 120, Maneuver: models.ManeuverRight, Instruction: "Turn right", Location: geo.MustNew(49.4163, 8.685726)},
			{Length: 0.5, Duration: 83, Maneuver: models.ManeuverLeft, Instruction: "Turn left", Location: geo.MustNew(49.4190, 8.6880)},
		},
	}
	for _, s := range route.Steps {
		route.Polyline = append(route.Polyline, s.Location)
	}
	route.BuildLegs()
	return route
}

func doRequest(t *testing.T, handler http.Handler, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	router := NewRouter(NewHandler(&fakeRoutes{}, nil, 0), []string{"*"})

	rec := doRequest(t, router, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestGetProfiles(t *testing.T) {
	router := NewRouter(NewHandler(&fakeRoutes{}, nil, 0), []string{"*"})

	testCases := []struct {
		name     string
		target   string
		header   map[string]string
		language string
		labels   []string
	}{
		{"default english", "/api/profiles", nil, "en", []string{"Car", "Bicycle", "Walking"}},
		{"accept-language", "/api/profiles", map[string]string{"Accept-Language": "de-DE,de;q=0.9,en;q=0.5"}, "de", []string{"Auto", "Fahrrad", "Zu Fuß"}},
		{"lang query wins", "/api/profiles?lang=fr", map[string]string{"Accept-Language": "de"}, "fr", []string{"Voiture", "Vélo", "À pied"}},
		{"unsupported", "/api/profiles?lang=ja", nil, "en", []string{"Car", "Bicycle", "Walking"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, router, tc.target, tc.header)
			require.Equal(t, http.StatusOK, rec.Code)

			var body GetProfilesResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.language, body.Language)
			require.Len(t, body.Profiles, 3)
			for i, p := range body.Profiles {
				assert.Equal(t, tc.labels[i], p.Label)
			}
			assert.Equal(t, "driving-car", body.Profiles[0].Code)
		})
	}
}

func TestGetRoute(t *testing.T) {
	routes := &fakeRoutes{route: sampleRoute()}
	router := NewRouter(NewHandler(routes, nil, 0), []string{"*"})

	rec := doRequest(t, router, "/api/route?from=49.41461,8.681495&via=49.4163,8.685726&to=49.4190,8.6880&profile=walking&near=49.4163,8.6857", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, routing.Walking, routes.profile)
	require.Len(t, routes.waypoints, 3)
	assert.InDelta(t, 49.41461, routes.waypoints[0].Latitude(), 1e-9)
	assert.InDelta(t, 8.681495, routes.waypoints[0].Longitude(), 1e-9)

	var body GetRouteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "walking", body.Profile)
	require.NotNil(t, body.Route)
	assert.Len(t, body.Route.Steps, 3)

	require.Len(t, body.WaypointLegs, 2)
	assert.InDelta(t, 0.3, body.WaypointLegs[0].Length, 1e-9)
	assert.InDelta(t, 1.1, body.WaypointLegs[1].Length, 1e-9)

	require.NotEmpty(t, body.Nearby)
	assert.Equal(t, "Turn right", body.Nearby[0].Step.Instruction)
}

func TestGetRouteBadRequest(t *testing.T) {
	testCases := []struct {
		name   string
		target string
	}{
		{"missing to", "/api/route?from=49.4,8.6"},
		{"missing from", "/api/route?to=49.4,8.6"},
		{"bad coordinate", "/api/route?from=abc&to=49.4,8.6"},
		{"out of range", "/api/route?from=95,8.6&to=49.4,8.6"},
		{"bad via", "/api/route?from=49.4,8.6&via=x&to=49.4,8.6"},
		{"unknown profile", "/api/route?from=49.4,8.6&to=49.5,8.7&profile=boat"},
		{"bad near", "/api/route?from=49.4,8.6&to=49.5,8.7&near=here"},
		{"bad radius", "/api/route?from=49.4,8.6&to=49.5,8.7&radius=-2"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			routes := &fakeRoutes{route: sampleRoute()}
			router := NewRouter(NewHandler(routes, nil, 0), []string{"*"})

			rec := doRequest(t, router, tc.target, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, 0, routes.calls)
		})
	}
}

func TestGetRouteErrors(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"invalid input", &routing.Error{Kind: routing.KindInvalidInput, Message: "too few waypoints"}, http.StatusBadRequest, "invalid_input"},
		{"service", &routing.Error{Kind: routing.KindServiceError, StatusCode: 403, Message: "quota exceeded"}, http.StatusBadGateway, "service_error"},
		{"transport", &routing.Error{Kind: routing.KindTransportError, Err: context.DeadlineExceeded}, http.StatusGatewayTimeout, "transport_error"},
		{"parse", &routing.Error{Kind: routing.KindParseError}, http.StatusBadGateway, "parse_error"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router := NewRouter(NewHandler(&fakeRoutes{err: tc.err}, nil, 0), []string{"*"})

			rec := doRequest(t, router, "/api/route?from=49.4,8.6&to=49.5,8.7", nil)
			assert.Equal(t, tc.status, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			if tc.kind != "" {
				assert.Equal(t, tc.kind, body.Details["kind"])
			}
		})
	}
}

func TestGetRouteServiceStatus(t *testing.T) {
	routes := &fakeRoutes{err: &routing.Error{Kind: routing.KindServiceError, StatusCode: 429, Message: "Rate limit exceeded"}}
	router := NewRouter(NewHandler(routes, nil, 0), []string{"*"})

	rec := doRequest(t, router, "/api/route?from=49.4,8.6&to=49.5,8.7", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Rate limit exceeded", body.Error)
	assert.EqualValues(t, 429, body.Details["upstreamStatus"])
}

func TestCORS(t *testing.T) {
	router := NewRouter(NewHandler(&fakeRoutes{}, nil, 0), []string{"https://maps.example.com"})

	rec := doRequest(t, router, "/health", map[string]string{"Origin": "https://maps.example.com"})
	assert.Equal(t, "https://maps.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = doRequest(t, router, "/health", map[string]string{"Origin": "https://evil.example.com"})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
