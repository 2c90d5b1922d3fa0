package timetable

import (
	"github.com/jinzhu/copier"
	"github.com/tripline/tripline/pkg/cbdf"
	"github.com/tripline/tripline/pkg/geo"
)

const DefaultStopDurationMinutes = 5

// Build walks the stations in order and produces one timetable row per
// station. Offsets are minutes from the origin departure. The terminal
// station keeps a zero departure offset as the vehicle goes no further.
//
// Stations are copied by value into the result so the rows stay stable
// even if a station record is edited afterwards.
func Build(stations []*cbdf.Station, speedKmh float64, stopDurationMinutes int) ([]cbdf.TripStation, error) {
	if len(stations) < 2 {
		return nil, cbdf.NewValidationError("a route requires at least 2 stations")
	}
	if speedKmh <= 0 {
		return nil, cbdf.NewValidationError("vehicle speed must be positive")
	}
	if stopDurationMinutes < 0 {
		return nil, cbdf.NewValidationError("stop duration cannot be negative")
	}

	rows := make([]cbdf.TripStation, 0, len(stations))

	for index, station := range stations {
		stationCopy := &cbdf.Station{}
		copier.CopyWithOption(stationCopy, station, copier.Option{DeepCopy: true})

		row := cbdf.TripStation{
			Station: stationCopy,
			Order:   index + 1,
		}

		if index > 0 {
			previous := rows[index-1]

			row.DistanceFromPrevKm = geo.DistanceKm(stations[index-1].Location, station.Location)
			row.ArrivalOffset = previous.DepartureOffset + geo.TravelMinutes(row.DistanceFromPrevKm, speedKmh)
		}

		// The dwell applies at intermediate stations only - the trip leaves
		// the origin at offset zero and never leaves the terminal
		if index > 0 && index < len(stations)-1 {
			row.DepartureOffset = row.ArrivalOffset + stopDurationMinutes
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// EstimatedMinutes is the total trip duration - the arrival offset of the
// terminal station.
func EstimatedMinutes(rows []cbdf.TripStation) int {
	if len(rows) == 0 {
		return 0
	}

	return rows[len(rows)-1].ArrivalOffset
}
