package geo

import (
	"fmt"
	"math"

	"github.com/tripline/tripline/pkg/cbdf"
)

const earthRadiusKm = 6371

// DistanceKm is the haversine great-circle distance between two locations,
// rounded to the nearest kilometre.
func DistanceKm(a *cbdf.Location, b *cbdf.Location) int {
	latA := a.Latitude() * math.Pi / 180
	latB := b.Latitude() * math.Pi / 180
	deltaLat := (b.Latitude() - a.Latitude()) * math.Pi / 180
	deltaLon := (b.Longitude() - a.Longitude()) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return int(math.Round(earthRadiusKm * c))
}

// TravelMinutes converts a distance into journey time at the given speed.
// Callers guarantee speed is positive.
func TravelMinutes(distanceKm int, speedKmh float64) int {
	return int(math.Round(float64(distanceKm) / speedKmh * 60))
}

func FormatMinutes(minutes int) string {
	hours := minutes / 60
	remaining := minutes % 60

	if hours == 0 {
		return fmt.Sprintf("%dm", remaining)
	}

	return fmt.Sprintf("%dh and %dm", hours, remaining)
}
