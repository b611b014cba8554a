// README: Shared geographic value objects used across modules.
package types

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsZero reports whether p is the zero coordinate, used as "not set".
func (p Point) IsZero() bool {
	return p.Lat == 0 && p.Lng == 0
}

// Valid reports whether p lies within the WGS84 bounds.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// LngLat formats p the way OSRM and GeoJSON order coordinates.
func (p Point) LngLat() string {
	return strconv.FormatFloat(p.Lng, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lat, 'f', 6, 64)
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// DistanceTo returns the great-circle distance to q in metres.
func (p Point) DistanceTo(q Point) float64 {
	return geo.Distance(orb.Point{p.Lng, p.Lat}, orb.Point{q.Lng, q.Lat})
}
