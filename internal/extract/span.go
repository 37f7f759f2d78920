package extract

import "math"

const (
	earthRadiusMeters = 6371000.0
	feetPerMeter      = 3.28084
)

// haversineMeters returns the great-circle distance between two coordinates.
func haversineMeters(a, b Coord) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// SpanLengthFeet returns the span between two endpoints in feet, rounded to
// one decimal place.
func SpanLengthFeet(a, b Coord) float64 {
	return math.Round(haversineMeters(a, b)*feetPerMeter*10) / 10
}
