package mapview

import "wanderplan/internal/types"

// MarkerHandle identifies a marker drawn on a Widget.
type MarkerHandle uint64

// Widget is a live map bound to one container. Layer is its only caller and serialises
// every call.
type Widget interface {
	AddTileLayer(urlTemplate, attribution string)
	AddMarker(m Marker, kind MarkerKind) (MarkerHandle, error)
	RemoveMarker(h MarkerHandle) error
	SetView(center types.Point, zoom int)
	View() (types.Point, int)
	ShowRoute(geometry []types.Point, waypoints []types.Point)
	RemoveRoute()
	// OnSelect installs the hook invoked when a user picks a selectable marker.
	OnSelect(fn func(markerID string))
	// Off detaches every listener.
	Off()
	// Stop halts pending animations.
	Stop()
	// Remove tears the widget down. All markers must have been removed first.
	Remove() error
}

// Surface hosts widgets in named containers.
type Surface interface {
	Attach(containerID string, center types.Point, zoom int) (Widget, error)
}

// Renderer is implemented by widgets that can export their scene.
type Renderer interface {
	GeoJSON() ([]byte, error)
}
