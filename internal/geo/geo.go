// Package geo decides geofence membership for capture attempts. All functions
// are pure; callers are responsible for feeding real coordinates.
package geo

import (
	"math"

	"clockout.agent/internal/core/model"
)

// EarthRadiusM is the spherical Earth radius used by the haversine formula,
// matching the backend's distance computation.
const EarthRadiusM = 6371000.0

// Distance returns the great-circle distance in meters between two WGS84
// coordinates given in degrees.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := radians(lat1)
	lat2Rad := radians(lat2)
	deltaLat := radians(lat2 - lat1)
	deltaLon := radians(lon2 - lon1)

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusM * c
}

// WithinFence reports whether the point lies inside the site's circular
// geofence. A point exactly on the boundary is inside.
func WithinFence(lat, lon float64, site model.Site) bool {
	_, inside := FenceCheck(lat, lon, site)
	return inside
}

// FenceCheck returns both the distance from the site center and the
// membership verdict, so callers can record the distance alongside the flag.
func FenceCheck(lat, lon float64, site model.Site) (distanceM float64, inside bool) {
	distanceM = Distance(lat, lon, site.Lat, site.Lon)
	return distanceM, distanceM <= site.RadiusM
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
