package mapview

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanderplan/internal/maps"
	"wanderplan/internal/types"
)

var (
	paris  = types.Point{Lat: 48.8566, Lng: 2.3522}
	eiffel = maps.Place{ID: "5013364", Name: "Eiffel Tower", Address: "Eiffel Tower, Paris, France", Location: types.Point{Lat: 48.8582599, Lng: 2.2945006}, Type: "attraction"}
	louvre = maps.Place{ID: "2", Name: "Louvre", Address: "Louvre, Paris", Location: types.Point{Lat: 48.8606, Lng: 2.3376}}
	orsay  = maps.Place{ID: "3", Name: "Musée d'Orsay", Address: "Orsay, Paris", Location: types.Point{Lat: 48.86, Lng: 2.3266}}
)

type fakeGeocoder struct {
	mu      sync.Mutex
	byQuery map[string][]maps.Place
	queries []string
	err     error
}

func (g *fakeGeocoder) Search(_ context.Context, q string) ([]maps.Place, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queries = append(g.queries, q)
	if g.err != nil {
		return nil, g.err
	}
	return g.byQuery[q], nil
}

func (g *fakeGeocoder) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queries)
}

type fakeRouter struct {
	calls atomic.Int32
	route *maps.Route
	err   error
	block chan struct{}
}

func (r *fakeRouter) Route(_ context.Context, _ []types.Point, _ maps.TransportMode) (*maps.Route, error) {
	r.calls.Add(1)
	if r.block != nil {
		<-r.block
	}
	return r.route, r.err
}

type fixture struct {
	scene    *Scene
	geocoder *fakeGeocoder
	router   *fakeRouter
	layer    *Layer
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		scene: NewScene(),
		geocoder: &fakeGeocoder{byQuery: map[string][]maps.Place{
			"Eiffel Tower":           {eiffel},
			"museum, Paris":          {louvre, orsay},
			"Eiffel Tower, France":   {eiffel},
			"Louvre":                 {louvre},
			"Musée d'Orsay":          {orsay},
			"nothing matches at all": nil,
		}},
		router: &fakeRouter{},
	}
	f.scene.Declare("map")
	f.layer = NewLayer(LayerDeps{Surface: f.scene, Geocoder: f.geocoder, Router: f.router}, opts)
	return f
}

func (f *fixture) init(t *testing.T, onSelect SelectFunc) {
	t.Helper()
	require.NoError(t, f.layer.Initialize("map", paris, 12, onSelect))
}

// kinds counts the features per kind in the exported scene.
func (f *fixture) kinds(t *testing.T) map[string]int {
	t.Helper()
	raw, err := f.scene.GeoJSON("map")
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	require.NoError(t, err)
	out := map[string]int{}
	for _, feat := range fc.Features {
		out[feat.Properties.MustString("kind")]++
	}
	return out
}

func TestInitialize_UnknownContainer(t *testing.T) {
	f := newFixture(t, Options{})

	err := f.layer.Initialize("missing", paris, 12, nil)

	assert.ErrorIs(t, err, ErrContainerNotFound)
	assert.Equal(t, StateUninitialized, f.layer.State())
}

func TestInitialize_ReplacesLiveWidget(t *testing.T) {
	f := newFixture(t, Options{})
	f.init(t, nil)
	_, err := f.layer.Search(context.Background(), "Eiffel Tower", "", "")
	require.NoError(t, err)

	f.init(t, nil)

	assert.Equal(t, StateReady, f.layer.State())
	assert.Empty(t, f.layer.Results())
	assert.Empty(t, f.kinds(t))
}

func TestOperationsRequireReady(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.layer.Search(ctx, "Eiffel Tower", "", "")
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = f.layer.PlanRoute(ctx, []types.Point{paris, eiffel.Location}, maps.ModeDriving)
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = f.layer.ToggleWaypoint(Marker{ID: "x", Lat: 1, Lng: 1})
	assert.ErrorIs(t, err, ErrNotReady)

	// Clears and Destroy are no-ops.
	f.layer.ClearRoute()
	f.layer.ClearMarkers()
	f.layer.ClearSelected()
	f.layer.ClearAll()
	f.layer.Destroy()
	assert.Equal(t, 0, f.geocoder.calls())
	assert.Equal(t, int32(0), f.router.calls.Load())
}

func TestSearch_EmptyKeywordMakesNoRequest(t *testing.T) {
	f := newFixture(t, Options{})
	f.init(t, nil)

	places, err := f.layer.Search(context.Background(), "   ", "Paris", "FR")

	require.NoError(t, err)
	assert.Empty(t, places)
	assert.Equal(t, 0, f.geocoder.calls())
}

func TestSearch_SingleHitRecentersAtZoom15(t *testing.T) {
	f := newFixture(t, Options{})
	f.init(t, nil)

	places, err := f.layer.Search(context.Background(), "Eiffel Tower", "", "")

	require.NoError(t, err)
	require.Len(t, places, 1)
	v := f.layer.Snapshot()
	assert.Equal(t, 15, v.Zoom)
	assert.Equal(t, eiffel.Location, v.Center)
	require.Len(t, v.Results, 1)
	assert.Equal(t, "Eiffel Tower", v.Results[0].Title)
	assert.Equal(t, "5013364", v.Results[0].SourceID)
	assert.Regexp(t, `^marker_`, v.Results[0].ID)
	assert.True(t, v.Results[0].Selectable)
}

func TestSearch_SingleHitZoomIsConfigurable(t *testing.T) {
	f := newFixture(t, Options{SingleHitZoom: 17})
	f.init(t, nil)

	_, err := f.layer.Search(context.Background(), "Eiffel Tower", "", "FR")
	require.NoError(t, err)

	assert.Equal(t, []string{"Eiffel Tower, France"}, f.geocoder.queries)
	assert.Equal(t, 17, f.layer.Snapshot().Zoom)
}

func TestSearch_ManyResultsKeepViewport(t *testing.T) {
	f := newFixture(t, Options{})
	f.init(t, nil)

	places, err := f.layer.Search(context.Background(), "museum", "Paris", "")

	require.NoError(t, err)
	assert.Len(t, places, 2)
	v := f.layer.Snapshot()
	assert.Equal(t, 12, v.Zoom)
	assert.Equal(t, paris, v.Center)
	assert.Equal(t, map[string]int{"result": 2}, f.kinds(t))
}

func TestSearch_ResultsCarryDistanceFromCentre(t *testing.T) {
	f := newFixture(t, Options{})
	f.init(t, nil)

	places, err := f.layer.Search(context.Background(), "Eiffel Tower", "", "")

	require.NoError(t, err)
	require.Len(t, places, 1)
	// Eiffel Tower is roughly 4 km from the Paris centre used by the fixture.
	assert.InDelta(t, paris.DistanceTo(eiffel.Location), places[0].Distance, 1)
	assert.Greater(t, places[0].Distance, 1000.0)
	assert.Zero(t, f.geocoder.byQuery["Eiffel Tower"][0].Distance)
}

func TestSearch_GeocoderFailure(t *testing.T) {
	f := newFixture(t, Options{})
	f.init(t, nil)
	f.geocoder.err = errors.New("503 Service Unavailable")

	_, err := f.layer.Search(context.Background(), "Louvre", "", "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "search failed")
}

func TestToggleWaypoint_IsItsOwnInverse(t *testing.T) {
	f := newFixture(t, Options{})
	f.init(t, nil)
	a := Marker{ID: "marker_a", SourceID: "A", Lat: 1, Lng: 1, Title: "A"}
	b := Marker{ID: "marker_b", SourceID: "B", Lat: 2, Lng: 2, Title: "B"}
	_, err := f.layer.ToggleWaypoint(a)
	require.NoError(t, err)
	before := f.layer.Selected()

	on, err := f.layer.ToggleWaypoint(b)
	require.NoError(t, err)
	assert.True(t, on)
	// A different marker with the same source derives the same waypoint id.
	off, err := f.layer.ToggleWaypoint(Marker{ID: "marker_other", SourceID: "B", Lat: 2, Lng: 2})
	require.NoError(t, err)
	assert.False(t, off)

	assert.Equal(t, before, f.layer.Selected())
	assert.Equal(t, map[string]int{"waypoint": 1}, f.kinds(t))
}

func TestToggleWaypoint_RemovingPresentWaypoint(t *testing.T) {
	f := newFixture(t, Options{})
	f.init(t, nil)
	a := Marker{SourceID: "A", Lat: 1, Lng: 1}
	b := Marker{SourceID: "B", Lat: 2, Lng: 2}
	for _, m := range []Marker{a, b} {
		_, err := f.layer.ToggleWaypoint(m)
		require.NoError(t, err)
	}
	before := f.layer.Selected()

	for i := 0; i < 2; i++ {
		_, err := f.layer.ToggleWaypoint(Marker{ID: "selected_A", Lat: 1, Lng: 1})
		require.NoError(t, err)
	}

	assert.ElementsMatch(t, before, f.layer.Selected())
	assert.Equal(t, "selected_A", WaypointID(a))
}

func TestSearchClearSelectedSearch(t *testing.T) {
	f := newFixture(t, Options{})
	f.init(t, nil)
	ctx := context.Background()

	_, err := f.layer.Search(ctx, "museum", "Paris", "")
	require.NoError(t, err)
	_, _, err = f.layer.SelectPlace(louvre.ID)
	require.NoError(t, err)
	require.Len(t, f.layer.Selected(), 1)

	f.layer.ClearSelected()
	latest, err := f.layer.Search(ctx, "Musée d'Orsay", "", "")
	require.NoError(t, err)

	assert.Empty(t, f.layer.Selected())
	results := f.layer.Results()
	require.Len(t, results, len(latest))
	assert.Equal(t, orsay.ID, results[0].SourceID)
	assert.Equal(t, map[string]int{"result": 1}, f.kinds(t))
}

func TestSearch_RedrawKeepsWaypoints(t *testing.T) {
	f := newFixture(t, Options{})
	f.init(t, nil)
	ctx := context.Background()
	_, err := f.layer.Search(ctx, "Louvre", "", "")
	require.NoError(t, err)
	_, _, err = f.layer.SelectPlace(louvre.ID)
	require.NoError(t, err)

	_, err = f.layer.Search(ctx, "museum", "Paris", "")
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"waypoint": 1, "result": 2}, f.kinds(t))
}

func TestClearMarkers_KeepsWaypoints(t *testing.T) {
	f := newFixture(t, Options{})
	f.init(t, nil)
	_, err := f.layer.Search(context.Background(), "museum", "Paris", "")
	require.NoError(t, err)
	_, _, err = f.layer.SelectPlace(orsay.ID)
	require.NoError(t, err)

	f.layer.ClearMarkers()

	assert.Empty(t, f.layer.Results())
	assert.Len(t, f.layer.Selected(), 1)
	assert.Equal(t, map[string]int{"waypoint": 1}, f.kinds(t))
}

func TestSelectPlace_ViaPopupNotifiesListener(t *testing.T) {
	f := newFixture(t, Options{})
	type event struct {
		id       string
		selected bool
	}
	var mu sync.Mutex
	var events []event
	f.init(t, func(wp Marker, selected bool) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event{wp.ID, selected})
	})
	_, err := f.layer.Search(context.Background(), "Eiffel Tower", "", "")
	require.NoError(t, err)
	markerID := f.layer.Results()[0].ID

	require.NoError(t, f.scene.Click("map", markerID))
	require.NoError(t, f.scene.Click("map", markerID))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []event{{"selected_5013364", true}, {"selected_5013364", false}}, events)
	assert.Empty(t, f.layer.Selected())
}

func TestSelectPlace_Unknown(t *testing.T) {
	f := newFixture(t, Options{})
	f.init(t, nil)

	_, _, err := f.layer.SelectPlace("nope")
	assert.ErrorIs(t, err, ErrUnknownMarker)
}

func TestPlanRoute_NeedsTwoWaypoints(t *testing.T) {
	f := newFixture(t, Options{})
	f.init(t, nil)

	for _, wps := range [][]types.Point{nil, {paris}} {
		_, err := f.layer.PlanRoute(context.Background(), wps, maps.ModeDriving)
		assert.ErrorIs(t, err, ErrPrecondition)
	}
	assert.Equal(t, int32(0), f.router.calls.Load())
}

func TestPlanRoute_Success(t *testing.T) {
	f := newFixture(t, Options{})
	f.init(t, nil)
	f.router.route = &maps.Route{
		Distance: 4321,
		Duration: 600,
		Geometry: []types.Point{louvre.Location, eiffel.Location},
		Steps:    []maps.Step{{Instruction: "depart"}},
	}

	res, err := f.layer.PlanRoute(context.Background(), []types.Point{louvre.Location, eiffel.Location}, "")

	require.NoError(t, err)
	assert.Equal(t, RouteSuccess, res.Status)
	assert.Equal(t, 4321.0, res.Distance)
	assert.Equal(t, 600.0, res.Time)
	assert.Equal(t, maps.ModeDriving, res.Mode)
	require.NotNil(t, f.layer.Route())
	assert.Equal(t, 1, f.kinds(t)["route"])
}

func TestPlanRoute_NoRouteKeepsWaypoints(t *testing.T) {
	f := newFixture(t, Options{})
	f.init(t, nil)
	f.router.err = maps.ErrNoRoute
	for _, m := range []Marker{{SourceID: "L", Lat: louvre.Location.Lat, Lng: louvre.Location.Lng}, {SourceID: "E", Lat: eiffel.Location.Lat, Lng: eiffel.Location.Lng}} {
		_, err := f.layer.ToggleWaypoint(m)
		require.NoError(t, err)
	}
	wps := make([]types.Point, 0, 2)
	for _, w := range f.layer.Selected() {
		wps = append(wps, w.Point())
	}

	res, err := f.layer.PlanRoute(context.Background(), wps, maps.ModeDriving)

	require.NoError(t, err)
	assert.Equal(t, RouteError, res.Status)
	assert.NotEmpty(t, res.Message)
	assert.Len(t, f.layer.Selected(), 2)
	assert.Equal(t, 0, f.kinds(t)["route"])
}

func TestPlanRoute_TimesOutWhenRouterHangs(t *testing.T) {
	f := newFixture(t, Options{RouteTimeout: 20 * time.Millisecond})
	f.init(t, nil)
	f.router.block = make(chan struct{})
	defer close(f.router.block)

	start := time.Now()
	res, err := f.layer.PlanRoute(context.Background(), []types.Point{louvre.Location, eiffel.Location}, maps.ModeWalking)

	require.NoError(t, err)
	assert.Equal(t, RouteError, res.Status)
	assert.Contains(t, res.Message, "timed out")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestPlanRoute_NetworkError(t *testing.T) {
	f := newFixture(t, Options{})
	f.init(t, nil)
	f.router.err = errors.New("dial tcp: connection refused")

	res, err := f.layer.PlanRoute(context.Background(), []types.Point{louvre.Location, eiffel.Location}, maps.ModeCycling)

	require.NoError(t, err)
	assert.Equal(t, RouteError, res.Status)
	assert.Contains(t, res.Message, "connection refused")
}

func TestPlanRoute_TransitNotSupported(t *testing.T) {
	f := newFixture(t, Options{})
	f.init(t, nil)

	res, err := f.layer.PlanRoute(context.Background(), []types.Point{louvre.Location, eiffel.Location}, maps.ModeTransit)

	require.NoError(t, err)
	assert.Equal(t, RouteError, res.Status)
	assert.Contains(t, res.Message, "not supported")
	assert.Equal(t, int32(0), f.router.calls.Load())
}

func TestClearRoute_KeepsSelection(t *testing.T) {
	f := newFixture(t, Options{})
	f.init(t, nil)
	f.router.route = &maps.Route{Geometry: []types.Point{louvre.Location, eiffel.Location}}
	for _, m := range []Marker{{SourceID: "L", Lat: 1, Lng: 1}, {SourceID: "E", Lat: 2, Lng: 2}} {
		_, err := f.layer.ToggleWaypoint(m)
		require.NoError(t, err)
	}
	_, err := f.layer.PlanRoute(context.Background(), []types.Point{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}}, maps.ModeDriving)
	require.NoError(t, err)

	f.layer.ClearRoute()
	f.layer.ClearRoute()

	assert.Nil(t, f.layer.Route())
	assert.Len(t, f.layer.Selected(), 2)
	assert.Equal(t, map[string]int{"waypoint": 2}, f.kinds(t))
}

func TestClearAll(t *testing.T) {
	f := newFixture(t, Options{})
	f.init(t, nil)
	f.router.route = &maps.Route{Geometry: []types.Point{louvre.Location, eiffel.Location}}
	_, err := f.layer.Search(context.Background(), "museum", "Paris", "")
	require.NoError(t, err)
	_, _, err = f.layer.SelectPlace(louvre.ID)
	require.NoError(t, err)
	_, err = f.layer.PlanRoute(context.Background(), []types.Point{louvre.Location, eiffel.Location}, maps.ModeDriving)
	require.NoError(t, err)

	f.layer.ClearAll()

	v := f.layer.Snapshot()
	assert.Empty(t, v.Results)
	assert.Empty(t, v.Selected)
	assert.Nil(t, v.Route)
	assert.Empty(t, f.kinds(t))
}

func TestDestroy_ReleasesContainer(t *testing.T) {
	f := newFixture(t, Options{})
	f.init(t, nil)
	_, err := f.layer.Search(context.Background(), "museum", "Paris", "")
	require.NoError(t, err)
	_, _, err = f.layer.SelectPlace(orsay.ID)
	require.NoError(t, err)

	f.layer.Destroy()
	f.layer.Destroy()

	assert.Equal(t, StateUninitialized, f.layer.State())
	assert.Empty(t, f.layer.Selected())
	// The scene refuses to remove a widget that still has markers, so a successful
	// re-attach proves the teardown order.
	require.NoError(t, f.layer.Initialize("map", paris, 0, nil))
	assert.Equal(t, DefaultZoom, f.layer.Snapshot().Zoom)
}

func TestSetCenterAndCountryCenter(t *testing.T) {
	f := newFixture(t, Options{})
	assert.ErrorIs(t, f.layer.SetCenter(paris, 10), ErrNotReady)
	f.init(t, nil)

	tokyo := f.layer.CountryCenter("JP")
	require.NoError(t, f.layer.SetCenter(tokyo, 0))
	v := f.layer.Snapshot()
	assert.Equal(t, tokyo, v.Center)
	assert.Equal(t, 12, v.Zoom)

	assert.ErrorIs(t, f.layer.SetCenter(types.Point{Lat: 91}, 3), ErrInvalidCoordinates)
	assert.Equal(t, maps.DefaultCenter, f.layer.CountryCenter("??"))
}

func TestAddMarker(t *testing.T) {
	f := newFixture(t, Options{})
	f.init(t, nil)

	m, err := f.layer.AddMarker(Marker{Title: "Hotel", Lat: 48.87, Lng: 2.33, Selectable: true})
	require.NoError(t, err)
	assert.Regexp(t, `^marker_`, m.ID)

	_, err = f.layer.AddMarker(Marker{Title: "Nowhere", Lat: 200, Lng: 0})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
	assert.Equal(t, map[string]int{"result": 1}, f.kinds(t))
}

func TestLayerGeoJSON(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.layer.GeoJSON()
	assert.ErrorIs(t, err, ErrNotReady)

	f.init(t, nil)
	_, err = f.layer.Search(context.Background(), "Eiffel Tower", "", "")
	require.NoError(t, err)

	raw, err := f.layer.GeoJSON()
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "Eiffel Tower", fc.Features[0].Properties.MustString("title"))
	assert.EqualValues(t, 15, fc.ExtraMembers["zoom"])
}
