package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/twpayne/go-polyline"

	"wanderplan/internal/types"
)

// DefaultOSRMURL is the public OSRM demo server.
const DefaultOSRMURL = "https://router.project-osrm.org"

var osrmProfiles = map[TransportMode]string{
	ModeDriving: "driving",
	ModeWalking: "foot",
	ModeCycling: "bike",
}

type osrmManeuver struct {
	Type     string    `json:"type"`
	Modifier string    `json:"modifier"`
	Location []float64 `json:"location"`
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry string  `json:"geometry"`
		Legs     []struct {
			Steps []struct {
				Name     string       `json:"name"`
				Distance float64      `json:"distance"`
				Duration float64      `json:"duration"`
				Maneuver osrmManeuver `json:"maneuver"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
	Waypoints []struct {
		Location []float64 `json:"location"`
	} `json:"waypoints"`
}

// OSRMRouter plans routes with the OSRM HTTP API.
type OSRMRouter struct {
	baseURL string
	client  *http.Client
}

func NewOSRMRouter(baseURL string, client *http.Client) *OSRMRouter {
	if baseURL == "" {
		baseURL = DefaultOSRMURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &OSRMRouter{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (r *OSRMRouter) Route(ctx context.Context, waypoints []types.Point, mode TransportMode) (*Route, error) {
	profile, ok := osrmProfiles[mode]
	if !ok {
		return nil, fmt.Errorf("osrm: %w: %s", ErrUnsupportedMode, mode)
	}
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("osrm: need at least 2 waypoints, got %d", len(waypoints))
	}

	coords := make([]string, len(waypoints))
	for i, p := range waypoints {
		coords[i] = p.LngLat()
	}
	endpoint := fmt.Sprintf("%s/route/v1/%s/%s?overview=full&geometries=polyline&steps=true",
		r.baseURL, profile, strings.Join(coords, ";"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("osrm: build request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("osrm: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("osrm: read response: %w", err)
	}

	// OSRM reports routing failures as JSON with a non-2xx status, so decode first.
	var out osrmResponse
	if err := json.Unmarshal(body, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("osrm: %s", resp.Status)
		}
		return nil, fmt.Errorf("osrm: decode response: %w", err)
	}
	switch {
	case out.Code == "NoRoute" || (out.Code == "Ok" && len(out.Routes) == 0):
		return nil, ErrNoRoute
	case out.Code != "Ok":
		return nil, fmt.Errorf("osrm: %s: %s", out.Code, out.Message)
	}

	best := out.Routes[0]
	route := &Route{Distance: best.Distance, Duration: best.Duration}

	if best.Geometry != "" {
		decoded, _, err := polyline.DecodeCoords([]byte(best.Geometry))
		if err != nil {
			return nil, fmt.Errorf("osrm: decode geometry: %w", err)
		}
		route.Geometry = make([]types.Point, len(decoded))
		for i, c := range decoded {
			route.Geometry[i] = types.Point{Lat: c[0], Lng: c[1]}
		}
	}

	for _, leg := range best.Legs {
		for _, s := range leg.Steps {
			route.Steps = append(route.Steps, Step{
				Instruction: instruction(s.Maneuver, s.Name),
				Road:        s.Name,
				Distance:    s.Distance,
				Duration:    s.Duration,
				Location:    lngLatPoint(s.Maneuver.Location),
			})
		}
	}
	for _, w := range out.Waypoints {
		route.Waypoints = append(route.Waypoints, lngLatPoint(w.Location))
	}
	return route, nil
}

func instruction(m osrmManeuver, road string) string {
	verb := strings.TrimSpace(m.Type + " " + m.Modifier)
	if road == "" {
		return verb
	}
	return verb + " onto " + road
}

func lngLatPoint(c []float64) types.Point {
	if len(c) < 2 {
		return types.Point{}
	}
	return types.Point{Lat: c[1], Lng: c[0]}
}
