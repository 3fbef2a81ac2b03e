// Package geo resolves the nearest responsible site for a coordinate by
// great-circle distance. Pure functions, no external calls.
package geo

import "math"

// earthRadiusKm is the sphere radius used by the haversine formula.
const earthRadiusKm = 6371.0

// Site is a fixed location candidate for nearest-site resolution.
type Site struct {
	ID        uint64
	Latitude  float64
	Longitude float64
}

// Distance returns the great-circle distance in kilometers between two points
// given in decimal degrees.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := degToRad(lat1)
	rlat2 := degToRad(lat2)
	dlat := rlat2 - rlat1
	dlon := degToRad(lon2) - degToRad(lon1)

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Asin(math.Sqrt(a))

	return earthRadiusKm * c
}

// Nearest returns the candidate with the minimal haversine distance to the
// given point. Ties keep the first candidate seen in iteration order; callers
// that need a deterministic outcome pass candidates in a stable order. The
// second return is false when candidates is empty.
func Nearest(lat, lon float64, candidates []Site) (Site, bool) {
	if len(candidates) == 0 {
		return Site{}, false
	}

	best := candidates[0]
	bestDistance := Distance(lat, lon, best.Latitude, best.Longitude)
	for _, candidate := range candidates[1:] {
		d := Distance(lat, lon, candidate.Latitude, candidate.Longitude)
		if d < bestDistance {
			best = candidate
			bestDistance = d
		}
	}

	return best, true
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
