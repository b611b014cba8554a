package mapview

import (
	"errors"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"wanderplan/internal/types"
)

var errWidgetRemoved = errors.New("map widget was removed")

// Scene is an in-memory Surface. Clients declare container ids, layers attach widgets to
// them, and the resulting scene is exported as GeoJSON for the browser to mirror.
type Scene struct {
	mu         sync.Mutex
	containers map[string]*sceneWidget
	nextHandle MarkerHandle
}

func NewScene() *Scene {
	return &Scene{containers: make(map[string]*sceneWidget)}
}

// Declare registers a container id. Declaring an existing id is a no-op.
func (s *Scene) Declare(containerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[containerID]; !ok {
		s.containers[containerID] = nil
	}
}

// Declared reports whether the container id is known.
func (s *Scene) Declared(containerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.containers[containerID]
	return ok
}

func (s *Scene) Attach(containerID string, center types.Point, zoom int) (Widget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.containers[containerID]
	if !ok {
		return nil, ErrContainerNotFound
	}
	if w != nil {
		return nil, ErrContainerInUse
	}
	w = &sceneWidget{
		scene:       s,
		containerID: containerID,
		center:      center,
		zoom:        zoom,
		markers:     make(map[MarkerHandle]placedMarker),
	}
	s.containers[containerID] = w
	return w, nil
}

// Click simulates a user choosing "select this location" on a marker popup.
func (s *Scene) Click(containerID, markerID string) error {
	s.mu.Lock()
	w := s.containers[containerID]
	if w == nil {
		s.mu.Unlock()
		return ErrContainerNotFound
	}
	var found bool
	for _, pm := range w.markers {
		if pm.marker.ID == markerID && pm.marker.Selectable {
			found = true
			break
		}
	}
	hook := w.onSelect
	s.mu.Unlock()

	if !found {
		return ErrUnknownMarker
	}
	if hook != nil {
		hook(markerID)
	}
	return nil
}

// GeoJSON exports the widget attached to containerID.
func (s *Scene) GeoJSON(containerID string) ([]byte, error) {
	s.mu.Lock()
	w := s.containers[containerID]
	s.mu.Unlock()
	if w == nil {
		return nil, ErrContainerNotFound
	}
	return w.GeoJSON()
}

type placedMarker struct {
	marker Marker
	kind   MarkerKind
}

type sceneWidget struct {
	scene       *Scene
	containerID string
	removed     bool

	center      types.Point
	zoom        int
	tileURL     string
	attribution string
	markers     map[MarkerHandle]placedMarker
	order       []MarkerHandle
	route       []types.Point
	routeStops  []types.Point
	onSelect    func(string)
}

func (w *sceneWidget) AddTileLayer(urlTemplate, attribution string) {
	w.scene.mu.Lock()
	defer w.scene.mu.Unlock()
	w.tileURL, w.attribution = urlTemplate, attribution
}

func (w *sceneWidget) AddMarker(m Marker, kind MarkerKind) (MarkerHandle, error) {
	w.scene.mu.Lock()
	defer w.scene.mu.Unlock()
	if w.removed {
		return 0, errWidgetRemoved
	}
	if !m.Point().Valid() {
		return 0, ErrInvalidCoordinates
	}
	w.scene.nextHandle++
	h := w.scene.nextHandle
	w.markers[h] = placedMarker{marker: m, kind: kind}
	w.order = append(w.order, h)
	return h, nil
}

func (w *sceneWidget) RemoveMarker(h MarkerHandle) error {
	w.scene.mu.Lock()
	defer w.scene.mu.Unlock()
	if w.removed {
		return errWidgetRemoved
	}
	if _, ok := w.markers[h]; !ok {
		return ErrUnknownMarker
	}
	delete(w.markers, h)
	for i, o := range w.order {
		if o == h {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	return nil
}

func (w *sceneWidget) SetView(center types.Point, zoom int) {
	w.scene.mu.Lock()
	defer w.scene.mu.Unlock()
	w.center, w.zoom = center, zoom
}

func (w *sceneWidget) View() (types.Point, int) {
	w.scene.mu.Lock()
	defer w.scene.mu.Unlock()
	return w.center, w.zoom
}

func (w *sceneWidget) ShowRoute(geometry []types.Point, waypoints []types.Point) {
	w.scene.mu.Lock()
	defer w.scene.mu.Unlock()
	w.route = append([]types.Point(nil), geometry...)
	w.routeStops = append([]types.Point(nil), waypoints...)
}

func (w *sceneWidget) RemoveRoute() {
	w.scene.mu.Lock()
	defer w.scene.mu.Unlock()
	w.route, w.routeStops = nil, nil
}

func (w *sceneWidget) OnSelect(fn func(string)) {
	w.scene.mu.Lock()
	defer w.scene.mu.Unlock()
	w.onSelect = fn
}

func (w *sceneWidget) Off() {
	w.OnSelect(nil)
}

func (w *sceneWidget) Stop() {}

func (w *sceneWidget) Remove() error {
	w.scene.mu.Lock()
	defer w.scene.mu.Unlock()
	if w.removed {
		return nil
	}
	if len(w.markers) > 0 {
		return ErrMarkersStillPresent
	}
	w.removed = true
	if w.scene.containers[w.containerID] == w {
		w.scene.containers[w.containerID] = nil
	}
	return nil
}

// GeoJSON renders markers as Point features and the route as a LineString. The
// FeatureCollection carries the viewport in its "center" and "zoom" members.
func (w *sceneWidget) GeoJSON() ([]byte, error) {
	w.scene.mu.Lock()
	defer w.scene.mu.Unlock()

	fc := geojson.NewFeatureCollection()
	for _, h := range w.order {
		pm := w.markers[h]
		f := geojson.NewFeature(orb.Point{pm.marker.Lng, pm.marker.Lat})
		f.ID = pm.marker.ID
		f.Properties["kind"] = string(pm.kind)
		f.Properties["title"] = pm.marker.Title
		f.Properties["selectable"] = pm.marker.Selectable
		if pm.marker.Description != "" {
			f.Properties["description"] = pm.marker.Description
		}
		fc.Append(f)
	}
	if len(w.route) > 0 {
		line := make(orb.LineString, len(w.route))
		for i, p := range w.route {
			line[i] = orb.Point{p.Lng, p.Lat}
		}
		f := geojson.NewFeature(line)
		f.Properties["kind"] = "route"
		fc.Append(f)

		stops := make(orb.MultiPoint, len(w.routeStops))
		for i, p := range w.routeStops {
			stops[i] = orb.Point{p.Lng, p.Lat}
		}
		sf := geojson.NewFeature(stops)
		sf.Properties["kind"] = "route_stops"
		fc.Append(sf)
	}
	fc.ExtraMembers = geojson.Properties{
		"container": w.containerID,
		"center":    []float64{w.center.Lng, w.center.Lat},
		"zoom":      w.zoom,
		"tiles":     w.tileURL,
	}
	return fc.MarshalJSON()
}
