package mapview

import (
	"errors"
	"strings"
	"time"

	"wanderplan/internal/maps"
	"wanderplan/internal/types"
)

var (
	ErrNotReady            = errors.New("map is not initialized")
	ErrPrecondition        = errors.New("route planning needs at least 2 waypoints")
	ErrContainerNotFound   = errors.New("map container not found")
	ErrContainerInUse      = errors.New("map container already hosts a map")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
	ErrUnknownMarker       = errors.New("marker not found")
	ErrMarkersStillPresent = errors.New("markers must be removed before the map")
)

// WaypointPrefix marks the ids of selected waypoints.
const WaypointPrefix = "selected_"

// Defaults applied by Options.withDefaults.
const (
	DefaultZoom          = 13
	DefaultSingleHitZoom = 15
	DefaultRouteTimeout  = 30 * time.Second
	DefaultTileURL       = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultAttribution   = "© OpenStreetMap contributors"
)

// State is the lifecycle state of a Layer.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateReady         State = "ready"
)

// MarkerKind distinguishes transient search results from selected waypoints.
type MarkerKind string

const (
	KindResult   MarkerKind = "result"
	KindWaypoint MarkerKind = "waypoint"
)

// Marker is a point drawn on the map.
type Marker struct {
	ID          string  `json:"id"`
	SourceID    string  `json:"sourceId,omitempty"`
	Lng         float64 `json:"lng"`
	Lat         float64 `json:"lat"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Selectable  bool    `json:"selectable"`
}

func (m Marker) Point() types.Point {
	return types.Point{Lat: m.Lat, Lng: m.Lng}
}

// WaypointID derives the selection key of m. Markers that share a source toggle the
// same waypoint.
func WaypointID(m Marker) string {
	if strings.HasPrefix(m.ID, WaypointPrefix) {
		return m.ID
	}
	return WaypointPrefix + sourceOf(m)
}

func sourceOf(m Marker) string {
	if m.SourceID != "" {
		return m.SourceID
	}
	return strings.TrimPrefix(m.ID, WaypointPrefix)
}

type RouteStatus string

const (
	RouteSuccess RouteStatus = "success"
	RouteError   RouteStatus = "error"
)

// RoutePlanResult is the outcome of PlanRoute. Distance is in metres and Time in seconds.
type RoutePlanResult struct {
	Status   RouteStatus        `json:"status"`
	Distance float64            `json:"distance,omitempty"`
	Time     float64            `json:"time,omitempty"`
	Tolls    float64            `json:"tolls,omitempty"`
	Message  string             `json:"message,omitempty"`
	Steps    []maps.Step        `json:"steps,omitempty"`
	Geometry []types.Point      `json:"geometry,omitempty"`
	Mode     maps.TransportMode `json:"transportMode"`
}

// View is a point-in-time copy of a Layer's bookkeeping.
type View struct {
	State       State            `json:"state"`
	ContainerID string           `json:"containerId,omitempty"`
	Center      types.Point      `json:"center"`
	Zoom        int              `json:"zoom"`
	Results     []Marker         `json:"results"`
	Selected    []Marker         `json:"selected"`
	Route       *RoutePlanResult `json:"route,omitempty"`
}

// Options tunes a Layer. Zero values fall back to the package defaults.
type Options struct {
	TileURL       string
	Attribution   string
	DefaultZoom   int
	SingleHitZoom int
	RouteTimeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.TileURL == "" {
		o.TileURL = DefaultTileURL
	}
	if o.Attribution == "" {
		o.Attribution = DefaultAttribution
	}
	if o.DefaultZoom <= 0 {
		o.DefaultZoom = DefaultZoom
	}
	if o.SingleHitZoom <= 0 {
		o.SingleHitZoom = DefaultSingleHitZoom
	}
	if o.RouteTimeout <= 0 {
		o.RouteTimeout = DefaultRouteTimeout
	}
	return o
}
