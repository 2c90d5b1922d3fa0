package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripline/tripline/pkg/cbdf"
)

func testStation(identifier string, longitude float64, latitude float64) *cbdf.Station {
	return &cbdf.Station{
		PrimaryIdentifier: identifier,
		Name:              identifier,
		Location: &cbdf.Location{
			Type:        "Point",
			Coordinates: []float64{longitude, latitude},
		},
	}
}

func TestBuildSingleLeg(t *testing.T) {
	stations := []*cbdf.Station{
		testStation("tripline:station:a", 0, 0),
		testStation("tripline:station:b", 0, 1),
	}

	rows, err := Build(stations, 100, 5)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 1, rows[0].Order)
	assert.Equal(t, 0, rows[0].DistanceFromPrevKm)
	assert.Equal(t, 0, rows[0].ArrivalOffset)
	assert.Equal(t, 0, rows[0].DepartureOffset, "trip leaves the origin at its departure time")

	// One degree of latitude at 100km/h is roughly 67 minutes
	assert.Equal(t, 2, rows[1].Order)
	assert.InDelta(t, 111, rows[1].DistanceFromPrevKm, 1)
	assert.InDelta(t, 67, rows[1].ArrivalOffset, 1)
	assert.Equal(t, 0, rows[1].DepartureOffset, "terminal station has no departure")

	assert.Equal(t, rows[1].ArrivalOffset, EstimatedMinutes(rows))
}

func TestBuildOffsetsAreMonotonic(t *testing.T) {
	stations := []*cbdf.Station{
		testStation("tripline:station:a", 0, 0),
		testStation("tripline:station:b", 0, 1),
		testStation("tripline:station:c", 1, 2),
		testStation("tripline:station:d", 2, 2),
	}

	rows, err := Build(stations, 120, 5)
	require.NoError(t, err)

	for index, row := range rows {
		if index == len(rows)-1 {
			assert.Equal(t, 0, row.DepartureOffset)
			continue
		}

		assert.LessOrEqual(t, row.ArrivalOffset, row.DepartureOffset)
		assert.LessOrEqual(t, row.DepartureOffset, rows[index+1].ArrivalOffset)
	}
}

func TestBuildZeroStopDuration(t *testing.T) {
	stations := []*cbdf.Station{
		testStation("tripline:station:a", 0, 0),
		testStation("tripline:station:b", 0, 1),
		testStation("tripline:station:c", 0, 2),
	}

	rows, err := Build(stations, 100, 0)
	require.NoError(t, err)

	assert.Equal(t, rows[1].ArrivalOffset, rows[1].DepartureOffset, "back-to-back stations with no dwell")
}

func TestBuildCopiesStationsByValue(t *testing.T) {
	stations := []*cbdf.Station{
		testStation("tripline:station:a", 0, 0),
		testStation("tripline:station:b", 0, 1),
	}

	rows, err := Build(stations, 100, 5)
	require.NoError(t, err)

	stations[0].Name = "renamed"
	stations[0].Location.Coordinates[1] = 50

	assert.Equal(t, "tripline:station:a", rows[0].Station.Name)
	assert.Equal(t, float64(0), rows[0].Station.Location.Coordinates[1])
}

func TestBuildRejectsInvalidInput(t *testing.T) {
	stations := []*cbdf.Station{
		testStation("tripline:station:a", 0, 0),
	}

	_, err := Build(stations, 100, 5)
	assert.ErrorContains(t, err, "at least 2 stations")

	stations = append(stations, testStation("tripline:station:b", 0, 1))

	_, err = Build(stations, 0, 5)
	assert.ErrorContains(t, err, "speed")

	_, err = Build(stations, 100, -1)
	assert.ErrorContains(t, err, "stop duration")
}
