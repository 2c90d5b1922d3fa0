package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tripline/tripline/pkg/cbdf"
)

func TestDistanceKm(t *testing.T) {
	equator := &cbdf.Location{Type: "Point", Coordinates: []float64{0, 0}}
	oneDegreeNorth := &cbdf.Location{Type: "Point", Coordinates: []float64{0, 1}}

	distance := DistanceKm(equator, oneDegreeNorth)

	// One degree of latitude is roughly 111km
	assert.InDelta(t, 111, distance, 1)
}

func TestDistanceKmSymmetry(t *testing.T) {
	london := &cbdf.Location{Type: "Point", Coordinates: []float64{-0.1276, 51.5072}}
	manchester := &cbdf.Location{Type: "Point", Coordinates: []float64{-2.2426, 53.4808}}

	assert.Equal(t, DistanceKm(london, manchester), DistanceKm(manchester, london))
	assert.Equal(t, 0, DistanceKm(london, london))
}

func TestTravelMinutes(t *testing.T) {
	assert.Equal(t, 67, TravelMinutes(111, 100))
	assert.Equal(t, 60, TravelMinutes(100, 100))
	assert.Equal(t, 0, TravelMinutes(0, 120))
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "45m", FormatMinutes(45))
	assert.Equal(t, "0m", FormatMinutes(0))
	assert.Equal(t, "1h and 7m", FormatMinutes(67))
	assert.Equal(t, "2h and 0m", FormatMinutes(120))
}
