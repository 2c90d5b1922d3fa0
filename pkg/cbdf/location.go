package cbdf

// Location is a GeoJSON point - Coordinates are longitude then latitude
type Location struct {
	Type        string    `json:"-" groups:"basic"`
	Coordinates []float64 `json:"coordinates" groups:"basic"`
}

func (l *Location) Longitude() float64 {
	return l.Coordinates[0]
}

func (l *Location) Latitude() float64 {
	return l.Coordinates[1]
}
