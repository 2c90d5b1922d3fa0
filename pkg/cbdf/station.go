package cbdf

import "time"

type Station struct {
	PrimaryIdentifier string `groups:"basic" bson:",omitempty"`

	CreationDateTime     time.Time `groups:"detailed" bson:",omitempty"`
	ModificationDateTime time.Time `groups:"detailed" bson:",omitempty"`

	Name    string `groups:"basic"`
	City    string `groups:"basic"`
	Country string `groups:"basic"`
	Code    string `groups:"basic"`

	Location *Location `groups:"basic"`
}
