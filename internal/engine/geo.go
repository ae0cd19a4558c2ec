package engine

import (
	"math"

	"github.com/terraplay/geoquiz/internal/geoquiz"
)

const earthRadiusM = 6371000

// HaversineM returns the great-circle distance between two points in meters.
func HaversineM(a, b geoquiz.Coordinates) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180.0
	dLon := (b.Lon - a.Lon) * math.Pi / 180.0
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180.0)*math.Cos(b.Lat*math.Pi/180.0)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusM * c
}

// withinSnap reports whether a click hit the city. Strict inequality:
// a click exactly at the snap radius is a miss.
func withinSnap(distM, snapM float64) bool {
	return distM < snapM
}
