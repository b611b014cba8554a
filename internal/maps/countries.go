package maps

import (
	"strings"

	"wanderplan/internal/types"
)

type country struct {
	name    string
	capital types.Point
}

// countries maps ISO 3166-1 alpha-2 codes to an English name and a representative city.
var countries = map[string]country{
	"CN": {"China", types.Point{Lat: 39.90923, Lng: 116.397428}},
	"JP": {"Japan", types.Point{Lat: 35.6895, Lng: 139.6917}},
	"US": {"United States", types.Point{Lat: 40.7128, Lng: -74.0060}},
	"FR": {"France", types.Point{Lat: 48.8566, Lng: 2.3522}},
	"GB": {"United Kingdom", types.Point{Lat: 51.5074, Lng: -0.1276}},
	"DE": {"Germany", types.Point{Lat: 52.5200, Lng: 13.4050}},
	"IT": {"Italy", types.Point{Lat: 41.9028, Lng: 12.4964}},
	"ES": {"Spain", types.Point{Lat: 40.4168, Lng: -3.7038}},
	"KR": {"South Korea", types.Point{Lat: 37.5665, Lng: 126.9780}},
	"TH": {"Thailand", types.Point{Lat: 13.7563, Lng: 100.5018}},
	"SG": {"Singapore", types.Point{Lat: 1.3521, Lng: 103.8198}},
	"MY": {"Malaysia", types.Point{Lat: 3.1390, Lng: 101.6869}},
	"ID": {"Indonesia", types.Point{Lat: -6.2088, Lng: 106.8456}},
	"AU": {"Australia", types.Point{Lat: -33.8688, Lng: 151.2093}},
	"CA": {"Canada", types.Point{Lat: 45.4215, Lng: -75.6972}},
	"BR": {"Brazil", types.Point{Lat: -15.7801, Lng: -47.9292}},
	"RU": {"Russia", types.Point{Lat: 55.7558, Lng: 37.6173}},
	"IN": {"India", types.Point{Lat: 28.6139, Lng: 77.2090}},
	"ZA": {"South Africa", types.Point{Lat: -26.2041, Lng: 28.0473}},
	"MX": {"Mexico", types.Point{Lat: 19.4326, Lng: -99.1332}},
	"EG": {"Egypt", types.Point{Lat: 30.0444, Lng: 31.2357}},
	"TR": {"Turkey", types.Point{Lat: 41.0082, Lng: 28.9784}},
	"AE": {"United Arab Emirates", types.Point{Lat: 25.2048, Lng: 55.2708}},
	"SA": {"Saudi Arabia", types.Point{Lat: 24.7136, Lng: 46.6753}},
	"VN": {"Vietnam", types.Point{Lat: 21.0278, Lng: 105.8342}},
	"PH": {"Philippines", types.Point{Lat: 14.5995, Lng: 120.9842}},
	"TW": {"Taiwan", types.Point{Lat: 25.0330, Lng: 121.5654}},
	"HK": {"Hong Kong", types.Point{Lat: 22.3193, Lng: 114.1694}},
	"MO": {"Macau", types.Point{Lat: 22.1987, Lng: 113.5439}},
}

// DefaultCenter is used when a country code is unknown.
var DefaultCenter = countries["CN"].capital

// CountryName returns the English name for an ISO code, or "" if unknown.
func CountryName(code string) string {
	return countries[strings.ToUpper(strings.TrimSpace(code))].name
}

// CountryCenter returns a representative coordinate for the country, and false when the
// code is unknown and DefaultCenter was returned instead.
func CountryCenter(code string) (types.Point, bool) {
	c, ok := countries[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return DefaultCenter, false
	}
	return c.capital, true
}
