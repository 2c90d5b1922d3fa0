package cbdf

import (
	"context"
	"time"

	"github.com/tripline/tripline/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/exp/slices"
)

type Trip struct {
	PrimaryIdentifier string `groups:"basic" bson:",omitempty"`

	CreationDateTime     time.Time `groups:"detailed" bson:",omitempty"`
	ModificationDateTime time.Time `groups:"detailed" bson:",omitempty"`

	RouteRef string `groups:"internal" bson:",omitempty"`
	Route    *Route `groups:"detailed" json:",omitempty" bson:"-"`

	VehicleRef string   `groups:"internal" bson:",omitempty"`
	Vehicle    *Vehicle `groups:"detailed" json:",omitempty" bson:"-"`

	// Snapshot of the vehicle capacity at creation time, upper bound for
	// seat releases
	VehicleCapacity int `groups:"internal"`

	DepartureTime time.Time `groups:"basic"`
	ArrivalTime   time.Time `groups:"basic"`

	EstimatedMinutes    int    `groups:"basic"`
	EstimatedDisplay    string `groups:"basic"`
	StopDurationMinutes int    `groups:"detailed"`

	// Point-in-time copy of the route stations - later route edits never
	// alter an existing trip
	Stations []TripStation `groups:"detailed"`

	AvailableSeats int     `groups:"basic"`
	Price          float64 `groups:"basic"`

	Status TripStatus `groups:"basic"`
}

// TripStation is one row of a trip timetable. Offsets are minutes from the
// trip origin departure.
type TripStation struct {
	Station *Station `groups:"basic"`
	Order   int      `groups:"basic"`

	DistanceFromPrevKm int `groups:"basic"`
	ArrivalOffset      int `groups:"basic"`
	DepartureOffset    int `groups:"basic"`
}

type TripStatus string

const (
	TripStatusPreparing TripStatus = "preparing"
	TripStatusPrepared  TripStatus = "prepared"
	TripStatusOnWay     TripStatus = "onWay"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
)

var validTripTransitions = map[TripStatus][]TripStatus{
	TripStatusPreparing: {TripStatusPrepared, TripStatusOnWay, TripStatusCancelled},
	TripStatusPrepared:  {TripStatusOnWay, TripStatusCancelled},
	TripStatusOnWay:     {TripStatusCompleted, TripStatusCancelled},
	TripStatusCompleted: {},
	TripStatusCancelled: {},
}

func (s TripStatus) CanTransitionTo(target TripStatus) bool {
	return slices.Contains(validTripTransitions[s], target)
}

func (s TripStatus) IsTerminal() bool {
	return len(validTripTransitions[s]) == 0
}

func (t *Trip) GetReferences() {
	t.GetRoute()
	t.GetVehicle()
}

func (t *Trip) GetRoute() {
	if t.Route != nil {
		return
	}

	routesCollection := database.GetCollection("routes")
	routesCollection.FindOne(context.Background(), bson.M{"primaryidentifier": t.RouteRef}).Decode(&t.Route)
}

func (t *Trip) GetVehicle() {
	if t.Vehicle != nil {
		return
	}

	vehiclesCollection := database.GetCollection("vehicles")
	vehiclesCollection.FindOne(context.Background(), bson.M{"primaryidentifier": t.VehicleRef}).Decode(&t.Vehicle)
}

// Window is the vehicle-level hold for this trip.
func (t *Trip) Window() Window {
	return Window{Start: t.DepartureTime, End: t.ArrivalTime}
}
