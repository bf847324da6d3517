package domain

import "math"

// EarthRadiusKM is the equatorial radius.
const EarthRadiusKM = 6378.137

// ChordDistance returns the great-circle distance in km between two points,
// computed from the straight-line chord through the sphere.
func ChordDistance(lon1, lat1, lon2, lat2 float64) float64 {
	x1, y1, z1 := cartesian(lon1, lat1)
	x2, y2, z2 := cartesian(lon2, lat2)
	chord := math.Sqrt((x1-x2)*(x1-x2) + (y1-y2)*(y1-y2) + (z1-z2)*(z1-z2))
	ratio := math.Min(chord/2/EarthRadiusKM, 1)
	return 2 * math.Asin(ratio) * EarthRadiusKM
}

func cartesian(lon, lat float64) (x, y, z float64) {
	phi := lat * math.Pi / 180
	theta := lon * math.Pi / 180
	return EarthRadiusKM * math.Cos(phi) * math.Cos(theta),
		EarthRadiusKM * math.Cos(phi) * math.Sin(theta),
		EarthRadiusKM * math.Sin(phi)
}
