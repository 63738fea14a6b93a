package profile

import "math"

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points rounded to whole kilometres.
func DistanceKm(a, b Coordinates) int {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return int(math.Round(2 * earthRadiusKm * math.Asin(math.Sqrt(h))))
}
