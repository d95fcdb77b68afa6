package widget

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/i474232898/weather-by-city/internal/weather"
)

// View is the display-ready form of State.
type View struct {
	Icon        weather.Icon `json:"icon,omitempty"`
	Temperature string       `json:"temperature,omitempty"`
	Location    string       `json:"location,omitempty"`
	Humidity    string       `json:"humidity,omitempty"`
	WindSpeed   string       `json:"windSpeed,omitempty"`
	Loading     bool         `json:"loading"`
	Empty       bool         `json:"empty"`
}

// Render builds the View for s.
func Render(s State) View {
	v := View{Loading: s.IsLoading}
	if s.Snapshot == nil {
		v.Empty = true
		return v
	}
	snap := s.Snapshot
	v.Icon = snap.Icon()
	v.Temperature = fmt.Sprintf("%d °C", snap.Temperature)
	v.Location = snap.Location
	v.Humidity = fmt.Sprintf("%d%%", snap.Humidity)
	v.WindSpeed = strconv.FormatFloat(snap.WindSpeed, 'f', -1, 64) + " km/h"
	return v
}

// Text renders the card as plain text.
func (v View) Text() string {
	var b strings.Builder
	if v.Loading {
		b.WriteString("Loading...\n")
	}
	if v.Empty {
		b.WriteString("No weather data yet\n")
		return b.String()
	}
	fmt.Fprintf(&b, "[%s]\n", v.Icon)
	fmt.Fprintf(&b, "%s\n", v.Temperature)
	fmt.Fprintf(&b, "%s\n", v.Location)
	fmt.Fprintf(&b, "%-11s %s\n", "Humidity", v.Humidity)
	fmt.Fprintf(&b, "%-11s %s\n", "Wind Speed", v.WindSpeed)
	return b.String()
}
