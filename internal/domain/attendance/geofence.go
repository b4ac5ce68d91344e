package attendance

import "math"

const earthRadiusMeters = 6371000.0

// GeofenceFunc reports whether location lies within radiusMeters of merchantLocation.
type GeofenceFunc func(location, merchantLocation GeoPoint, radiusMeters float64) bool

// WithinGeofence is the default GeofenceFunc, based on great-circle distance.
func WithinGeofence(location, merchantLocation GeoPoint, radiusMeters float64) bool {
	return DistanceMeters(location, merchantLocation) <= radiusMeters
}

// DistanceMeters is the haversine distance between a and b.
func DistanceMeters(a, b GeoPoint) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

func (p GeoPoint) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
