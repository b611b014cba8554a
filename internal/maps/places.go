package maps

import (
	"context"
	"strings"

	"wanderplan/internal/types"
)

// Place represents a simplified geocoding result.
type Place struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Address  string      `json:"address"`
	Location types.Point `json:"location"`
	Type     string      `json:"type"`
	City     string      `json:"city,omitempty"`
	District string      `json:"district,omitempty"`
	// Distance is metres from the map centre at search time; zero when unknown.
	Distance float64 `json:"distance,omitempty"`
}

// Geocoder resolves a free-text query into candidate places.
type Geocoder interface {
	Search(ctx context.Context, query string) ([]Place, error)
}

// BuildQuery joins the keyword with the optional city and the country's English name.
// Unknown country codes are ignored.
func BuildQuery(keyword, city, countryCode string) string {
	parts := []string{strings.TrimSpace(keyword)}
	if c := strings.TrimSpace(city); c != "" {
		parts = append(parts, c)
	}
	if name := CountryName(countryCode); name != "" {
		parts = append(parts, name)
	}
	return strings.Join(parts, ", ")
}
