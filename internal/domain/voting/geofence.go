package voting

import (
	"fmt"
	"math"
)

const earthRadiusMeters = 6371000.0

func ValidateCoordinates(lat float64, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return ErrInvalidCoordinates
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinates, lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinates, lng)
	}
	return nil
}

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(lat1 float64, lng1 float64, lat2 float64, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// IsWithinFence is inclusive: a point exactly radiusMeters away is inside.
func IsWithinFence(lat float64, lng float64, fenceLat float64, fenceLng float64, radiusMeters float64) (bool, error) {
	if err := ValidateCoordinates(lat, lng); err != nil {
		return false, err
	}
	if err := ValidateCoordinates(fenceLat, fenceLng); err != nil {
		return false, err
	}
	return HaversineMeters(lat, lng, fenceLat, fenceLng) <= radiusMeters, nil
}

// CheckFence applies an event fence, honoring the off-site flag.
func CheckFence(fence Fence, lat float64, lng float64) (bool, error) {
	if fence.OffSiteAllowed {
		return true, ValidateCoordinates(lat, lng)
	}
	return IsWithinFence(lat, lng, fence.Lat, fence.Lng, fence.RadiusMeters)
}
