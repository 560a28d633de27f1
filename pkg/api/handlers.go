// Package api exposes the routing client over a small JSON HTTP API for web
// front-ends
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/kass/go-openroute/pkg/geo"
	"github.com/kass/go-openroute/pkg/models"
	"github.com/kass/go-openroute/pkg/routing"
	"github.com/kass/go-openroute/pkg/rtree"
)

const defaultNearRadiusKm = 0.5

// RouteComputer computes a route through the given waypoints
type RouteComputer interface {
	ComputeRoute(ctx context.Context, waypoints []geo.Coordinate, profile routing.Profile) (*models.Route, error)
}

// Handler handles HTTP requests for routes and profiles
type Handler struct {
	routes  RouteComputer
	log     *zap.Logger
	timeout time.Duration
}

// NewHandler creates a handler. A zero timeout leaves the request context
// as is.
func NewHandler(routes RouteComputer, log *zap.Logger, timeout time.Duration) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{routes: routes, log: log, timeout: timeout}
}

// ErrorResponse is the JSON error response structure
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ProfileInfo describes one travel profile for a picker
type ProfileInfo struct {
	Name  string `json:"name"`
	Code  string `json:"code"`
	Label string `json:"label"`
}

// GetProfilesResponse is the JSON response structure for GET /api/profiles
type GetProfilesResponse struct {
	Language string        `json:"language"`
	Profiles []ProfileInfo `json:"profiles"`
}

// GetRouteResponse is the JSON response structure for GET /api/route
type GetRouteResponse struct {
	Profile      string        `json:"profile"`
	Route        *models.Route `json:"route"`
	WaypointLegs []models.Leg  `json:"waypointLegs"`
	Nearby       []rtree.Match `json:"nearby,omitempty"`
	ComputedAt   time.Time     `json:"computedAt"`
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// GetProfiles handles GET /api/profiles
// Labels follow the lang query parameter, then Accept-Language
func (h *Handler) GetProfiles(w http.ResponseWriter, r *http.Request) {
	tag := requestLanguage(r)

	profiles := make([]ProfileInfo, 0, len(routing.Profiles()))
	for _, p := range routing.Profiles() {
		profiles = append(profiles, ProfileInfo{
			Name:  p.String(),
			Code:  p.Code(),
			Label: routing.LabelFor(p, tag),
		})
	}

	w.Header().Set("Vary", "Accept-Language")
	writeJSON(w, http.StatusOK, GetProfilesResponse{
		Language: string(routing.LanguageFor(tag)),
		Profiles: profiles,
	})
}

// GetRoute handles GET /api/route?from=lat,lon&to=lat,lon[&via=lat,lon...][&profile=car]
// Optional near=lat,lon and radius=km list the steps around a position.
func (h *Handler) GetRoute(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	waypoints, err := parseWaypoints(query["from"], query["via"], query["to"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	profile := routing.Car
	if p := query.Get("profile"); p != "" {
		profile, err = routing.ParseProfile(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
	}

	var near *geo.Coordinate
	radius := defaultNearRadiusKm
	if s := query.Get("near"); s != "" {
		c, ok := geo.ParsePair(s)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid near coordinate %q", s), nil)
			return
		}
		near = &c
	}
	if s := query.Get("radius"); s != "" {
		radius, err = strconv.ParseFloat(s, 64)
		if err != nil || radius < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid radius %q", s), nil)
			return
		}
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	route, err := h.routes.ComputeRoute(ctx, waypoints, profile)
	if err != nil {
		h.writeRoutingError(w, err)
		return
	}

	response := GetRouteResponse{
		Profile:      profile.String(),
		Route:        route,
		WaypointLegs: []models.Leg{},
		ComputedAt:   time.Now().UTC(),
	}

	if len(route.Steps) > 0 {
		index, err := rtree.NewStepIndex(route)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to index route", map[string]interface{}{
				"internal": err.Error(),
			})
			return
		}

		response.WaypointLegs, err = index.LegsBetween(waypoints)
		if err != nil {
			h.log.Warn("failed to split route at waypoints", zap.Error(err))
			response.WaypointLegs = []models.Leg{}
		}

		if near != nil {
			response.Nearby, err = index.QueryRadius(*near, radius)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error(), nil)
				return
			}
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) writeRoutingError(w http.ResponseWriter, err error) {
	var rerr *routing.Error
	if !errors.As(err, &rerr) {
		h.log.Error("unexpected routing failure", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute route", nil)
		return
	}

	details := map[string]interface{}{"kind": rerr.Kind.String()}
	switch rerr.Kind {
	case routing.KindInvalidInput:
		writeError(w, http.StatusBadRequest, rerr.Error(), details)
	case routing.KindServiceError:
		details["upstreamStatus"] = rerr.StatusCode
		writeError(w, http.StatusBadGateway, rerr.Message, details)
	case routing.KindTransportError:
		writeError(w, http.StatusGatewayTimeout, "routing service unreachable", details)
	default:
		writeError(w, http.StatusBadGateway, "malformed routing response", details)
	}
}

func parseWaypoints(from, via, to []string) ([]geo.Coordinate, error) {
	if len(from) != 1 || len(to) != 1 {
		return nil, errors.New("exactly one from and one to parameter are required")
	}

	raw := make([]string, 0, len(via)+2)
	raw = append(raw, from[0])
	raw = append(raw, via...)
	raw = append(raw, to[0])

	waypoints := make([]geo.Coordinate, 0, len(raw))
	for _, s := range raw {
		c, ok := geo.ParsePair(s)
		if !ok {
			return nil, fmt.Errorf("invalid coordinate %q, expected lat,lon", s)
		}
		waypoints = append(waypoints, c)
	}
	return waypoints, nil
}

func requestLanguage(r *http.Request) language.Tag {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		if tag, err := language.Parse(lang); err == nil {
			return tag
		}
	}

	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return language.English
	}
	return tags[0]
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string, details map[string]interface{}) {
	writeJSON(w, status, ErrorResponse{Error: msg, Details: details})
}
