package maps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wanderplan/internal/types"
)

var (
	// ErrNoRoute means the router answered but found no path between the waypoints.
	ErrNoRoute = errors.New("no route found")
	// ErrUnsupportedMode is returned for transport modes a router cannot plan.
	ErrUnsupportedMode = errors.New("transport mode not supported")
)

// TransportMode selects the routing profile.
type TransportMode string

const (
	ModeDriving TransportMode = "driving"
	ModeWalking TransportMode = "walking"
	ModeCycling TransportMode = "cycling"
	ModeTransit TransportMode = "transit"
)

// ParseTransportMode accepts the mode names case-insensitively; empty means driving.
func ParseTransportMode(s string) (TransportMode, error) {
	switch m := TransportMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeDriving, nil
	case ModeDriving, ModeWalking, ModeCycling, ModeTransit:
		return m, nil
	default:
		return "", fmt.Errorf("unknown transport mode %q", s)
	}
}

// Step is one manoeuvre of a route.
type Step struct {
	Instruction string      `json:"instruction"`
	Road        string      `json:"road,omitempty"`
	Distance    float64     `json:"distance"`
	Duration    float64     `json:"duration"`
	Location    types.Point `json:"location"`
}

// Route is a planned path. Distance is in metres, Duration in seconds.
type Route struct {
	Distance  float64       `json:"distance"`
	Duration  float64       `json:"duration"`
	Geometry  []types.Point `json:"geometry"`
	Steps     []Step        `json:"steps"`
	Waypoints []types.Point `json:"waypoints"`
}

// Router plans a route through the waypoints in order.
type Router interface {
	Route(ctx context.Context, waypoints []types.Point, mode TransportMode) (*Route, error)
}
