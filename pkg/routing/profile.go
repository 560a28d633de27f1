package routing

import (
	"fmt"
	"net/url"
	"strings"
)

// Profile is the travel mode a route is computed for.
type Profile int

const (
	// Car routes along roads open to motor vehicles.
	Car Profile = iota
	// Bicycle routes for a regular bike.
	Bicycle
	// Walking routes on foot.
	Walking
)

var (
	profileNames = [...]string{"car", "bicycle", "walking"}
	profileCodes = [...]string{"driving-car", "cycling-regular", "foot-walking"}
)

// Profiles returns every supported profile in display order.
func Profiles() []Profile {
	return []Profile{Car, Bicycle, Walking}
}

// Valid reports whether p is one of the supported profiles.
func (p Profile) Valid() bool {
	return p >= Car && p <= Walking
}

// Code is the routing mode identifier used by the directions service.
func (p Profile) Code() string {
	if !p.Valid() {
		return ""
	}
	return profileCodes[p]
}

// String returns the short profile name, e.g. "car".
func (p Profile) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Profile(%d)", int(p))
	}
	return profileNames[p]
}

// Endpoint returns the directions URL for p below baseURL.
func (p Profile) Endpoint(baseURL string) (string, error) {
	if !p.Valid() {
		return "", fmt.Errorf("unknown profile %d", int(p))
	}
	return url.JoinPath(baseURL, "v2", "directions", p.Code(), "json")
}

// ParseProfile accepts a profile name ("car") or service code ("driving-car").
func ParseProfile(s string) (Profile, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, p := range Profiles() {
		if s == profileNames[p] || s == profileCodes[p] {
			return p, nil
		}
	}
	return 0, invalidInput(fmt.Sprintf("unknown profile %q", s), nil)
}

// MarshalText encodes p by its short name.
func (p Profile) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("unknown profile %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText accepts everything ParseProfile does.
func (p *Profile) UnmarshalText(text []byte) error {
	parsed, err := ParseProfile(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
