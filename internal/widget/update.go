// Package widget implements the weather display component: an explicit UI state,
// the events that change it and a single Update function per event.
package widget

import (
	"errors"
	"fmt"
	"strings"

	"github.com/i474232898/weather-by-city/internal/geo"
	"github.com/i474232898/weather-by-city/internal/notify"
	"github.com/i474232898/weather-by-city/internal/weather"
)

// User-facing notification texts.
const (
	MsgBlankCity           = "Please enter a city name"
	MsgInvalidCoords       = "Coordinates are out of range"
	MsgFetchFailed         = "Failed to fetch weather data. Please try again."
	MsgLocationUnsupported = "Geolocation is not supported"
	MsgLocationDenied      = "Unable to retrieve your location"
	msgUpdatedFormat       = "Weather updated for %s"
)

// State is the widget's UI state. It is only changed by Update.
type State struct {
	CityInput string            `json:"cityInput"`
	Snapshot  *weather.Snapshot `json:"snapshot,omitempty"`
	IsLoading bool              `json:"isLoading"`

	// Pending is the sequence number of the fetch whose answer is awaited, 0 if none.
	Pending uint64 `json:"-"`
	// Seq is the last sequence number handed out.
	Seq uint64 `json:"-"`
	// LastQuery is what produced Snapshot; Refresh repeats it.
	LastQuery *weather.Query `json:"-"`
}

// Event is a user action or a completion reported back to the widget.
type Event interface {
	event()
}

type (
	// Mounted is dispatched once when the widget starts.
	Mounted struct{}
	// CityInputChanged replaces the text in the search box.
	CityInputChanged struct{ Text string }
	// SearchCity looks up a city by name.
	SearchCity struct{ Name string }
	// SearchCoords looks up a position.
	SearchCoords struct{ Coords weather.Coordinates }
	// LocateRequested asks for the current location and then searches it.
	LocateRequested struct{}
	// Refresh repeats the last successful query quietly.
	Refresh struct{}

	LocationResolved struct{ Coords weather.Coordinates }
	LocationFailed   struct{ Err error }

	FetchSucceeded struct {
		Seq      uint64
		Query    weather.Query
		Quiet    bool
		Snapshot weather.Snapshot
	}
	FetchFailed struct {
		Seq   uint64
		Query weather.Query
		Quiet bool
		Err   error
	}
)

func (Mounted) event()          {}
func (CityInputChanged) event() {}
func (SearchCity) event()       {}
func (SearchCoords) event()     {}
func (LocateRequested) event()  {}
func (Refresh) event()          {}
func (LocationResolved) event() {}
func (LocationFailed) event()   {}
func (FetchSucceeded) event()   {}
func (FetchFailed) event()      {}

// Effect is work Update asks the runtime to perform.
type Effect interface {
	effect()
}

type (
	// Notify shows a toast.
	Notify struct {
		Level   notify.Level
		Message string
	}
	// Fetch performs one provider lookup. Issuing it supersedes any fetch in flight.
	Fetch struct {
		Seq   uint64
		Query weather.Query
		Quiet bool
	}
	// Locate queries the location capability.
	Locate struct{}
)

func (Notify) effect() {}
func (Fetch) effect()  {}
func (Locate) effect() {}

// Update applies ev to s. It performs no I/O.
func Update(s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case Mounted, LocateRequested:
		return s, []Effect{Locate{}}

	case CityInputChanged:
		s.CityInput = ev.Text
		return s, nil

	case SearchCity:
		name := strings.TrimSpace(ev.Name)
		if name == "" {
			return s, []Effect{Notify{Level: notify.LevelWarning, Message: MsgBlankCity}}
		}
		return startFetch(s, weather.CityQuery(name), false)

	case SearchCoords:
		return searchCoords(s, ev.Coords)

	case LocationResolved:
		return searchCoords(s, ev.Coords)

	case LocationFailed:
		msg := MsgLocationDenied
		if errors.Is(ev.Err, geo.ErrUnsupported) {
			msg = MsgLocationUnsupported
		}
		return s, []Effect{Notify{Level: notify.LevelError, Message: msg}}

	case Refresh:
		// a refresh never supersedes a fetch that is still running
		if s.LastQuery == nil || s.Pending != 0 {
			return s, nil
		}
		return startFetch(s, *s.LastQuery, true)

	case FetchSucceeded:
		if ev.Seq != s.Pending {
			return s, nil
		}
		snap := ev.Snapshot
		q := ev.Query
		s.Snapshot = &snap
		s.LastQuery = &q
		s.IsLoading = false
		s.Pending = 0
		if ev.Quiet {
			return s, nil
		}
		s.CityInput = ""
		return s, []Effect{Notify{Level: notify.LevelSuccess, Message: fmt.Sprintf(msgUpdatedFormat, snap.Location)}}

	case FetchFailed:
		if ev.Seq != s.Pending {
			return s, nil
		}
		s.IsLoading = false
		s.Pending = 0
		return s, []Effect{Notify{Level: notify.LevelError, Message: failureMessage(ev.Err)}}
	}

	return s, nil
}

func searchCoords(s State, c weather.Coordinates) (State, []Effect) {
	if !c.Valid() {
		return s, []Effect{Notify{Level: notify.LevelWarning, Message: MsgInvalidCoords}}
	}
	return startFetch(s, weather.CoordsQuery(c), false)
}

func startFetch(s State, q weather.Query, quiet bool) (State, []Effect) {
	s.Seq++
	s.Pending = s.Seq
	s.IsLoading = true
	return s, []Effect{Fetch{Seq: s.Seq, Query: q, Quiet: quiet}}
}

// failureMessage surfaces provider messages verbatim and hides everything else
// behind one generic text. An empty provider message also gets the generic text.
func failureMessage(err error) string {
	if pe, ok := weather.AsProviderError(err); ok && pe.Message != "" {
		return pe.Message
	}
	return MsgFetchFailed
}
