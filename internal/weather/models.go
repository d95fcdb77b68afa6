package weather

import (
	"fmt"
	"math"
	"time"
)

// Coordinates is a geographic position in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// Valid reports whether both components are within their geographic ranges.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}

// Query identifies what a lookup is for: either a city name or coordinates.
type Query struct {
	City   string       `json:"city,omitempty"`
	Coords *Coordinates `json:"coords,omitempty"`
}

// CityQuery builds a Query for a city name.
func CityQuery(name string) Query {
	return Query{City: name}
}

// CoordsQuery builds a Query for a position.
func CoordsQuery(c Coordinates) Query {
	return Query{Coords: &c}
}

// IsCoords reports whether the query is by position.
func (q Query) IsCoords() bool {
	return q.Coords != nil
}

// Kind is "coords" or "city"; used as a metrics label.
func (q Query) Kind() string {
	if q.IsCoords() {
		return "coords"
	}
	return "city"
}

func (q Query) String() string {
	if q.IsCoords() {
		return q.Coords.String()
	}
	return q.City
}

// Reading holds the raw provider values before they are mapped for display.
type Reading struct {
	TemperatureC float64
	Humidity     float64
	WindSpeed    float64
	Name         string
	IconCode     string
}

// Snapshot is the last successfully fetched reading shown to the user.
// A new Snapshot replaces the previous one wholesale.
type Snapshot struct {
	Temperature int       `json:"temperature"` // °C, floored
	Humidity    int       `json:"humidity"`    // percent
	WindSpeed   float64   `json:"windSpeed"`
	Location    string    `json:"location"`
	IconKey     string    `json:"iconKey"`
	FetchedAt   time.Time `json:"fetchedAt"`
}

// NewSnapshot maps a provider reading into the display model.
func NewSnapshot(r Reading, fetchedAt time.Time) Snapshot {
	return Snapshot{
		Temperature: int(math.Floor(r.TemperatureC)),
		Humidity:    int(math.Round(r.Humidity)),
		WindSpeed:   r.WindSpeed,
		Location:    r.Name,
		IconKey:     r.IconCode,
		FetchedAt:   fetchedAt.UTC(),
	}
}

// Icon returns the local asset for the snapshot's condition code.
func (s Snapshot) Icon() Icon {
	return ResolveIcon(s.IconKey)
}
