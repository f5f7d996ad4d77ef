// Package geo provides geolocation utilities for distance scoring and
// privacy-preserving coarse location display.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for great-circle distance.
const EarthRadiusKm = 6371.0

// HaversineKm computes the great-circle distance in kilometers between two
// points given in decimal degrees, using the Haversine formula.
//
// Parameters:
//   - lat1, lng1: first point in degrees
//   - lat2, lng2: second point in degrees
//
// Returns the distance in kilometers (always >= 0).
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// toRadians converts degrees to radians.
func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
