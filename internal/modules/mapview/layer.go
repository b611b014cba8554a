package mapview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"wanderplan/internal/maps"
	"wanderplan/internal/types"
)

// SelectFunc is told when a popup selection adds or removes a waypoint.
type SelectFunc func(waypoint Marker, selected bool)

// Recorder observes search and routing outcomes.
type Recorder interface {
	ObserveSearch(outcome string)
	ObserveRoute(status string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSearch(string) {}
func (nopRecorder) ObserveRoute(string)  {}

// LayerDeps are the collaborators of a Layer.
type LayerDeps struct {
	Surface  Surface
	Geocoder maps.Geocoder
	Router   maps.Router
	Logger   *slog.Logger
	Recorder Recorder
}

type drawnMarker struct {
	handle MarkerHandle
	marker Marker
	kind   MarkerKind
}

// Layer keeps one map widget consistent with search results, the selected waypoints and
// the current route. All mutations are serialised; network calls run without the lock
// and their results are applied atomically.
type Layer struct {
	surface  Surface
	geocoder maps.Geocoder
	router   maps.Router
	logger   *slog.Logger
	recorder Recorder
	opts     Options

	mu          sync.Mutex
	widget      Widget
	containerID string
	onSelect    SelectFunc
	drawn       []drawnMarker
	results     []Marker
	selected    []Marker
	route       *RoutePlanResult
	routeSeq    uint64
}

func NewLayer(deps LayerDeps, opts Options) *Layer {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	return &Layer{
		surface:  deps.Surface,
		geocoder: deps.Geocoder,
		router:   deps.Router,
		logger:   deps.Logger,
		recorder: deps.Recorder,
		opts:     opts.withDefaults(),
	}
}

// Initialize binds a fresh widget to containerID, destroying any live one first.
// A zoom of zero uses the default zoom.
func (l *Layer) Initialize(containerID string, center types.Point, zoom int, onSelect SelectFunc) error {
	if !center.Valid() {
		return ErrInvalidCoordinates
	}
	if zoom <= 0 {
		zoom = l.opts.DefaultZoom
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.destroyLocked()

	w, err := l.surface.Attach(containerID, center, zoom)
	if err != nil {
		return fmt.Errorf("initialize map: %w", err)
	}
	w.AddTileLayer(l.opts.TileURL, l.opts.Attribution)
	w.OnSelect(func(markerID string) {
		if _, _, err := l.SelectPlace(markerID); err != nil {
			l.logger.Warn("popup selection failed", "marker", markerID, "error", err)
		}
	})

	l.widget = w
	l.containerID = containerID
	l.onSelect = onSelect
	l.logger.Info("map initialized", "container", containerID, "center", center.String(), "zoom", zoom)
	return nil
}

func (l *Layer) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.widget == nil {
		return StateUninitialized
	}
	return StateReady
}

// Search geocodes keyword, optionally narrowed by city and ISO country code, and redraws
// the map: selected waypoints first, then one transient marker per result. A single
// result recenters the map on it. An empty keyword returns nothing without a request.
func (l *Layer) Search(ctx context.Context, keyword, city, countryCode string) ([]maps.Place, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, nil
	}
	if l.State() != StateReady {
		return nil, ErrNotReady
	}

	places, err := l.geocoder.Search(ctx, maps.BuildQuery(keyword, city, countryCode))
	if err != nil {
		l.recorder.ObserveSearch("error")
		return nil, fmt.Errorf("search failed: %w", err)
	}
	l.recorder.ObserveSearch("ok")

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.widget == nil {
		return nil, ErrNotReady
	}

	center, _ := l.widget.View()
	places = lo.Map(places, func(p maps.Place, _ int) maps.Place {
		p.Distance = center.DistanceTo(p.Location)
		return p
	})
	l.results = lo.Map(places, func(p maps.Place, _ int) Marker {
		return Marker{
			ID:          newMarkerID(),
			SourceID:    p.ID,
			Lng:         p.Location.Lng,
			Lat:         p.Location.Lat,
			Title:       p.Name,
			Description: p.Address,
			Selectable:  true,
		}
	})
	l.redrawLocked()

	if len(places) == 1 {
		l.widget.SetView(places[0].Location, l.opts.SingleHitZoom)
	}
	return places, nil
}

// Results returns the transient markers from the latest search, in result order.
func (l *Layer) Results() []Marker {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Marker(nil), l.results...)
}

// AddMarker draws an extra transient marker, e.g. an itinerary stop. An empty ID is
// assigned.
func (l *Layer) AddMarker(m Marker) (Marker, error) {
	if !m.Point().Valid() {
		return Marker{}, ErrInvalidCoordinates
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.widget == nil {
		return Marker{}, ErrNotReady
	}
	if m.ID == "" {
		m.ID = newMarkerID()
	}
	if err := l.drawLocked(m, KindResult); err != nil {
		return Marker{}, err
	}
	l.results = append(l.results, m)
	return m, nil
}

// ToggleWaypoint is the only way the selection changes. It removes the waypoint derived
// from m when present and appends it otherwise, reporting whether it is now selected.
func (l *Layer) ToggleWaypoint(m Marker) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.widget == nil {
		return false, ErrNotReady
	}
	return l.toggleLocked(m)
}

func (l *Layer) toggleLocked(m Marker) (bool, error) {
	key := WaypointID(m)
	if lo.ContainsBy(l.selected, func(w Marker) bool { return w.ID == key }) {
		l.selected = lo.Filter(l.selected, func(w Marker, _ int) bool { return w.ID != key })
		l.redrawLocked()
		return false, nil
	}
	if !m.Point().Valid() {
		return false, ErrInvalidCoordinates
	}

	wp := m
	wp.ID = key
	wp.SourceID = sourceOf(m)
	wp.Selectable = false
	l.selected = append(l.selected, wp)
	if err := l.drawLocked(wp, KindWaypoint); err != nil {
		l.logger.Warn("draw waypoint failed", "waypoint", key, "error", err)
	}
	return true, nil
}

// SelectPlace is the popup "select this location" action for a transient marker,
// addressed by marker id or source id. It toggles the waypoint and then notifies the
// listener given to Initialize.
func (l *Layer) SelectPlace(placeID string) (Marker, bool, error) {
	l.mu.Lock()
	if l.widget == nil {
		l.mu.Unlock()
		return Marker{}, false, ErrNotReady
	}
	m, ok := lo.Find(l.results, func(r Marker) bool { return r.ID == placeID || r.SourceID == placeID })
	if !ok {
		l.mu.Unlock()
		return Marker{}, false, fmt.Errorf("%w: %s", ErrUnknownMarker, placeID)
	}
	selected, err := l.toggleLocked(m)
	notify := l.onSelect
	l.mu.Unlock()

	if err != nil {
		return Marker{}, false, err
	}
	wp := m
	wp.ID = WaypointID(m)
	wp.SourceID = sourceOf(m)
	wp.Selectable = false
	if notify != nil {
		notify(wp, selected)
	}
	return wp, selected, nil
}

// Selected returns the waypoints in selection order.
func (l *Layer) Selected() []Marker {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Marker(nil), l.selected...)
}

// PlanRoute routes through waypoints. Fewer than two waypoints fail with ErrPrecondition
// before any request is made. Otherwise the previous route is cleared and the router is
// given at most the configured timeout; routing failures, including the timeout, resolve
// as a RoutePlanResult with status error. The error return is reserved for ErrPrecondition
// and ErrNotReady.
func (l *Layer) PlanRoute(ctx context.Context, waypoints []types.Point, mode maps.TransportMode) (RoutePlanResult, error) {
	if len(waypoints) < 2 {
		return RoutePlanResult{}, ErrPrecondition
	}
	for _, p := range waypoints {
		if !p.Valid() {
			return RoutePlanResult{}, ErrInvalidCoordinates
		}
	}
	if mode == "" {
		mode = maps.ModeDriving
	}

	l.mu.Lock()
	if l.widget == nil {
		l.mu.Unlock()
		return RoutePlanResult{}, ErrNotReady
	}
	l.clearRouteLocked()
	seq := l.routeSeq
	l.mu.Unlock()

	res := l.resolveRoute(ctx, waypoints, mode)
	l.recorder.ObserveRoute(string(res.Status))

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.widget != nil && l.routeSeq == seq {
		l.route = &res
		if res.Status == RouteSuccess {
			l.widget.ShowRoute(res.Geometry, waypoints)
		}
	}
	return res, nil
}

func (l *Layer) resolveRoute(ctx context.Context, waypoints []types.Point, mode maps.TransportMode) RoutePlanResult {
	if mode == maps.ModeTransit {
		return RoutePlanResult{Status: RouteError, Mode: mode, Message: "public transit routing is not supported yet"}
	}

	ctx, cancel := context.WithTimeout(ctx, l.opts.RouteTimeout)
	defer cancel()

	type outcome struct {
		route *maps.Route
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := l.router.Route(ctx, waypoints, mode)
		done <- outcome{route: r, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = ctx.Err()
	}

	switch {
	case out.err == nil && out.route != nil:
		return RoutePlanResult{
			Status:   RouteSuccess,
			Distance: out.route.Distance,
			Time:     out.route.Duration,
			Steps:    out.route.Steps,
			Geometry: out.route.Geometry,
			Mode:     mode,
		}
	case out.err == nil || errors.Is(out.err, maps.ErrNoRoute):
		return RoutePlanResult{Status: RouteError, Mode: mode, Message: "no route found between the selected waypoints"}
	case errors.Is(out.err, context.DeadlineExceeded):
		l.logger.Warn("route planning timed out", "timeout", l.opts.RouteTimeout, "waypoints", len(waypoints))
		return RoutePlanResult{Status: RouteError, Mode: mode, Message: "route planning timed out"}
	default:
		l.logger.Warn("route planning failed", "error", out.err)
		return RoutePlanResult{Status: RouteError, Mode: mode, Message: "route planning failed: " + out.err.Error()}
	}
}

// Route returns the current route, if any.
func (l *Layer) Route() *RoutePlanResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.route == nil {
		return nil
	}
	r := *l.route
	return &r
}

// ClearRoute removes the route overlay. Waypoints are untouched.
func (l *Layer) ClearRoute() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clearRouteLocked()
}

func (l *Layer) clearRouteLocked() {
	l.routeSeq++
	l.route = nil
	if l.widget != nil {
		l.widget.RemoveRoute()
	}
}

// ClearMarkers removes the transient markers and keeps the waypoints.
func (l *Layer) ClearMarkers() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.widget == nil {
		return
	}
	l.eraseLocked(KindResult)
	l.results = nil
}

// ClearSelected removes every waypoint and its marker.
func (l *Layer) ClearSelected() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.widget == nil {
		return
	}
	l.eraseLocked(KindWaypoint)
	l.selected = nil
}

// ClearAll removes markers, waypoints and the route.
func (l *Layer) ClearAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.widget == nil {
		return
	}
	l.eraseLocked("")
	l.results = nil
	l.selected = nil
	l.clearRouteLocked()
}

// SetCenter moves the viewport. A zoom of zero keeps the current zoom.
func (l *Layer) SetCenter(center types.Point, zoom int) error {
	if !center.Valid() {
		return ErrInvalidCoordinates
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.widget == nil {
		return ErrNotReady
	}
	if zoom <= 0 {
		_, zoom = l.widget.View()
	}
	l.widget.SetView(center, zoom)
	return nil
}

// CountryCenter returns the representative coordinate used to open a map for a country.
func (l *Layer) CountryCenter(code string) types.Point {
	p, _ := maps.CountryCenter(code)
	return p
}

// Snapshot returns a copy of the layer bookkeeping and viewport.
func (l *Layer) Snapshot() View {
	l.mu.Lock()
	defer l.mu.Unlock()
	v := View{
		State:    StateUninitialized,
		Results:  append([]Marker{}, l.results...),
		Selected: append([]Marker{}, l.selected...),
	}
	if l.widget == nil {
		return v
	}
	v.State = StateReady
	v.ContainerID = l.containerID
	v.Center, v.Zoom = l.widget.View()
	if l.route != nil {
		r := *l.route
		v.Route = &r
	}
	return v
}

// GeoJSON exports the live widget when it supports rendering.
func (l *Layer) GeoJSON() ([]byte, error) {
	l.mu.Lock()
	w := l.widget
	l.mu.Unlock()
	if w == nil {
		return nil, ErrNotReady
	}
	r, ok := w.(Renderer)
	if !ok {
		return nil, errors.New("map widget cannot render geojson")
	}
	return r.GeoJSON()
}

// Destroy tears the widget down: markers one by one, then the route, listeners and the
// widget itself. It is a no-op without a widget, and Initialize may follow immediately.
func (l *Layer) Destroy() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.destroyLocked()
}

func (l *Layer) destroyLocked() {
	if l.widget == nil {
		return
	}
	l.eraseLocked("")
	l.widget.RemoveRoute()
	l.widget.Off()
	l.widget.Stop()
	if err := l.widget.Remove(); err != nil {
		l.logger.Warn("remove map widget failed", "container", l.containerID, "error", err)
	}
	l.logger.Info("map destroyed", "container", l.containerID)

	l.widget = nil
	l.containerID = ""
	l.onSelect = nil
	l.results = nil
	l.selected = nil
	l.route = nil
	l.routeSeq++
}

func (l *Layer) drawLocked(m Marker, kind MarkerKind) error {
	h, err := l.widget.AddMarker(m, kind)
	if err != nil {
		return err
	}
	l.drawn = append(l.drawn, drawnMarker{handle: h, marker: m, kind: kind})
	return nil
}

// eraseLocked removes drawn markers of kind, or all of them when kind is empty.
func (l *Layer) eraseLocked(kind MarkerKind) {
	kept := make([]drawnMarker, 0, len(l.drawn))
	for _, d := range l.drawn {
		if kind != "" && d.kind != kind {
			kept = append(kept, d)
			continue
		}
		if err := l.widget.RemoveMarker(d.handle); err != nil {
			l.logger.Warn("remove marker failed", "marker", d.marker.ID, "error", err)
		}
	}
	l.drawn = kept
}

func (l *Layer) redrawLocked() {
	l.eraseLocked("")
	for _, w := range l.selected {
		if err := l.drawLocked(w, KindWaypoint); err != nil {
			l.logger.Warn("draw waypoint failed", "waypoint", w.ID, "error", err)
		}
	}
	for _, m := range l.results {
		if err := l.drawLocked(m, KindResult); err != nil {
			l.logger.Warn("draw marker failed", "marker", m.ID, "error", err)
		}
	}
}

func newMarkerID() string {
	return "marker_" + uuid.NewString()
}
