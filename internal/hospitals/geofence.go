package hospitals

import "math"

// EarthRadiusMeters is the spherical Earth radius used for distances.
const EarthRadiusMeters = 6371000.0

// Distance returns the great-circle distance in meters between two
// coordinates using the haversine formula.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// DistanceTo returns how far a coordinate is from the location.
func (l Location) DistanceTo(lat, lng float64) float64 {
	return Distance(l.Latitude, l.Longitude, lat, lng)
}

// Contains reports whether the coordinate is within the radius.
// A point exactly on the boundary is inside.
func (l Location) Contains(lat, lng float64) bool {
	return l.DistanceTo(lat, lng) <= l.RadiusMeters
}

// IsWithinGeofence reports whether the user is at the named hospital.
// Unknown hospitals are never matched.
func (d *Directory) IsWithinGeofence(hospitalName string, userLat, userLng float64) bool {
	loc, ok := d.Lookup(hospitalName)
	if !ok {
		return false
	}
	return loc.Contains(userLat, userLng)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
