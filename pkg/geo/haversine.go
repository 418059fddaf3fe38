package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate rejects coordinates outside the valid latitude/longitude ranges.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %v out of range", p.Lat)
	}
	if math.IsNaN(p.Lng) || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude %v out of range", p.Lng)
	}
	return nil
}

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// Within reports whether b lies within radiusKm of a.
func Within(a, b Point, radiusKm float64) bool {
	return Haversine(a, b) <= radiusKm
}

// RoundKm rounds a distance to one decimal for display.
func RoundKm(km float64) float64 {
	return math.Round(km*10) / 10
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Box is a latitude/longitude rectangle used to prefilter rows in SQL before
// the exact Haversine check.
type Box struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// BoundingBox returns the rectangle enclosing the circle of radiusKm around center.
func BoundingBox(center Point, radiusKm float64) Box {
	latDelta := radiusKm / (EarthRadiusKm * math.Pi / 180)
	cosLat := math.Cos(toRadians(center.Lat))
	lngDelta := 180.0
	if cosLat > 1e-9 {
		lngDelta = math.Min(180, latDelta/cosLat)
	}
	return Box{
		MinLat: math.Max(-90, center.Lat-latDelta),
		MaxLat: math.Min(90, center.Lat+latDelta),
		MinLng: math.Max(-180, center.Lng-lngDelta),
		MaxLng: math.Min(180, center.Lng+lngDelta),
	}
}

// Contains reports whether p lies inside the box.
func (b Box) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}
