package cbdf

import "time"

// Route is a reusable template of ordered stations. It carries no timing -
// timing is calculated per Trip from the vehicle assigned to it.
type Route struct {
	PrimaryIdentifier string `groups:"basic" bson:",omitempty"`

	CreationDateTime     time.Time `groups:"detailed" bson:",omitempty"`
	ModificationDateTime time.Time `groups:"detailed" bson:",omitempty"`

	Name string `groups:"basic"`

	StationRefs []string `groups:"basic"`

	ManagerRef    string `groups:"internal" bson:",omitempty"`
	International bool   `groups:"basic"`
}
