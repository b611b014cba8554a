package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wanderplan/internal/types"
)

// DefaultNominatimURL is the public OpenStreetMap geocoder.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

const nominatimLimit = 20

type nominatimItem struct {
	PlaceID     int64  `json:"place_id"`
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Type        string `json:"type"`
	Address     struct {
		City     string `json:"city"`
		Town     string `json:"town"`
		Village  string `json:"village"`
		Suburb   string `json:"suburb"`
		District string `json:"district"`
	} `json:"address"`
}

// Nominatim geocodes through an OpenStreetMap Nominatim instance.
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewNominatim returns a Nominatim client. The public instance rejects requests without
// an identifying User-Agent.
func NewNominatim(baseURL, userAgent string, client *http.Client) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Nominatim{baseURL: strings.TrimRight(baseURL, "/"), userAgent: userAgent, client: client}
}

func (n *Nominatim) Search(ctx context.Context, query string) ([]Place, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(nominatimLimit))
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("nominatim: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("nominatim: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var items []nominatimItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("nominatim: decode response: %w", err)
	}

	places := make([]Place, 0, len(items))
	for _, it := range items {
		lat, errLat := strconv.ParseFloat(it.Lat, 64)
		lng, errLng := strconv.ParseFloat(it.Lon, 64)
		if errLat != nil || errLng != nil {
			continue
		}
		places = append(places, Place{
			ID:       strconv.FormatInt(it.PlaceID, 10),
			Name:     strings.TrimSpace(strings.SplitN(it.DisplayName, ",", 2)[0]),
			Address:  it.DisplayName,
			Location: types.Point{Lat: lat, Lng: lng},
			Type:     firstNonEmpty(it.Type, "unknown"),
			City:     firstNonEmpty(it.Address.City, it.Address.Town, it.Address.Village),
			District: firstNonEmpty(it.Address.Suburb, it.Address.District),
		})
	}
	return places, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
