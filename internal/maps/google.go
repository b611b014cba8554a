package maps

import (
	"context"
	"fmt"

	gmaps "googlemaps.github.io/maps"

	"wanderplan/internal/types"
)

var googleModes = map[TransportMode]gmaps.Mode{
	ModeDriving: gmaps.TravelModeDriving,
	ModeWalking: gmaps.TravelModeWalking,
	ModeCycling: gmaps.TravelModeBicycling,
}

// Google implements Geocoder with Places text search and Router with the Directions API.
type Google struct {
	client   *gmaps.Client
	language string
}

// NewGoogle creates a Google maps client with the given API key.
func NewGoogle(apiKey, language string) (*Google, error) {
	client, err := gmaps.NewClient(gmaps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Google{client: client, language: language}, nil
}

func (g *Google) Search(ctx context.Context, query string) ([]Place, error) {
	resp, err := g.client.TextSearch(ctx, &gmaps.TextSearchRequest{
		Query:    query,
		Language: g.language,
	})
	if err != nil {
		return nil, fmt.Errorf("places api error: %w", err)
	}

	places := make([]Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		kind := "unknown"
		if len(r.Types) > 0 {
			kind = r.Types[0]
		}
		places = append(places, Place{
			ID:       r.PlaceID,
			Name:     r.Name,
			Address:  r.FormattedAddress,
			Location: types.Point{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
			Type:     kind,
		})
	}
	return places, nil
}

func (g *Google) Route(ctx context.Context, waypoints []types.Point, mode TransportMode) (*Route, error) {
	gmode, ok := googleModes[mode]
	if !ok {
		return nil, fmt.Errorf("directions: %w: %s", ErrUnsupportedMode, mode)
	}
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("directions: need at least 2 waypoints, got %d", len(waypoints))
	}

	r := &gmaps.DirectionsRequest{
		Origin:      latLng(waypoints[0]),
		Destination: latLng(waypoints[len(waypoints)-1]),
		Mode:        gmode,
		Language:    g.language,
	}
	for _, p := range waypoints[1 : len(waypoints)-1] {
		r.Waypoints = append(r.Waypoints, latLng(p))
	}

	routes, _, err := g.client.Directions(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, ErrNoRoute
	}

	best := routes[0]
	route := &Route{}
	for _, leg := range best.Legs {
		route.Distance += float64(leg.Distance.Meters)
		route.Duration += leg.Duration.Seconds()
		route.Waypoints = append(route.Waypoints, types.Point{Lat: leg.StartLocation.Lat, Lng: leg.StartLocation.Lng})
		for _, s := range leg.Steps {
			route.Steps = append(route.Steps, Step{
				Instruction: s.HTMLInstructions,
				Distance:    float64(s.Distance.Meters),
				Duration:    s.Duration.Seconds(),
				Location:    types.Point{Lat: s.StartLocation.Lat, Lng: s.StartLocation.Lng},
			})
		}
	}
	last := best.Legs[len(best.Legs)-1]
	route.Waypoints = append(route.Waypoints, types.Point{Lat: last.EndLocation.Lat, Lng: last.EndLocation.Lng})

	path, err := best.OverviewPolyline.Decode()
	if err != nil {
		return nil, fmt.Errorf("directions: decode polyline: %w", err)
	}
	route.Geometry = make([]types.Point, len(path))
	for i, ll := range path {
		route.Geometry[i] = types.Point{Lat: ll.Lat, Lng: ll.Lng}
	}
	return route, nil
}

func latLng(p types.Point) string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}
