package geo

import (
	"math"

	"explorafit-server/internal/domain"
)

// earthRadiusKm is the mean Earth radius used for great-circle distances.
const earthRadiusKm = 6371.0

// PathLengthKm sums the great-circle distance between consecutive polyline
// points, in kilometers rounded to two decimals. Fewer than two points is a
// zero-length path.
func PathLengthKm(points []domain.LatLng) float64 {
	if len(points) < 2 {
		return 0
	}

	var total float64
	for i := 0; i < len(points)-1; i++ {
		total += haversineKm(points[i], points[i+1])
	}
	return round2(total)
}

func haversineKm(a, b domain.LatLng) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
