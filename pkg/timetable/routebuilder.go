package timetable

import (
	"context"

	"github.com/tripline/tripline/pkg/cbdf"
	"github.com/tripline/tripline/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
)

// Builder resolves a route's station references and produces the timetable
// for it. If a StationCache is attached, lookups go through it.
type Builder struct {
	StationCache *StationCache
}

// BuildForRoute fails atomically - any missing station rejects the whole
// build and no partial timetable is returned.
func (b *Builder) BuildForRoute(route *cbdf.Route, speedKmh float64, stopDurationMinutes int) ([]cbdf.TripStation, error) {
	stations := make([]*cbdf.Station, 0, len(route.StationRefs))

	for _, stationRef := range route.StationRefs {
		station := b.lookupStation(stationRef)

		if station == nil {
			return nil, cbdf.NewNotFoundError("Station", stationRef)
		}

		stations = append(stations, station)
	}

	return Build(stations, speedKmh, stopDurationMinutes)
}

func (b *Builder) lookupStation(identifier string) *cbdf.Station {
	if b.StationCache != nil {
		return b.StationCache.Get(identifier)
	}

	var station *cbdf.Station
	stationsCollection := database.GetCollection("stations")
	stationsCollection.FindOne(context.Background(), bson.M{"primaryidentifier": identifier}).Decode(&station)

	return station
}
