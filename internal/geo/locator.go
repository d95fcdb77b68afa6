// Package geo provides the "current location" capability used by the widget.
package geo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-by-city/internal/weather"
)

var (
	// ErrUnsupported means no location source is available on this deployment.
	ErrUnsupported = errors.New("geolocation is not supported")

	// ErrDenied means a location source exists but refused or failed to answer.
	ErrDenied = errors.New("geolocation request denied")
)

// Locator resolves the user's current position.
type Locator interface {
	Locate(ctx context.Context) (weather.Coordinates, error)
}

// Unsupported is the Locator used when nothing is configured.
type Unsupported struct{}

func (Unsupported) Locate(context.Context) (weather.Coordinates, error) {
	return weather.Coordinates{}, ErrUnsupported
}

// Static always answers with fixed coordinates.
type Static struct {
	coords weather.Coordinates
}

// NewStatic validates c and returns a Static locator.
func NewStatic(c weather.Coordinates) (*Static, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("static location %s out of range", c)
	}
	return &Static{coords: c}, nil
}

func (s *Static) Locate(ctx context.Context) (weather.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return weather.Coordinates{}, fmt.Errorf("%w: %v", ErrDenied, err)
	}
	return s.coords, nil
}

// geocodeFunc matches geocoder.Geocoding.
type geocodeFunc func(geocoder.Address) (geocoder.Location, error)

// AddressLocator geocodes a configured place with the Google Geocoding API.
// The first successful answer is remembered; the place never changes.
type AddressLocator struct {
	address geocoder.Address
	geocode geocodeFunc

	mu       sync.Mutex
	resolved *weather.Coordinates
}

// NewAddressLocator configures the geocoder client. city is required.
//
// kelvins/geocoder keeps its API key in a package variable, so only one key
// per process is supported.
func NewAddressLocator(apiKey, city, state, country string) (*AddressLocator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: geocoding api key is not configured", ErrUnsupported)
	}
	if city == "" {
		return nil, fmt.Errorf("%w: location city is not configured", ErrUnsupported)
	}
	geocoder.ApiKey = apiKey

	return &AddressLocator{
		address: geocoder.Address{
			City:    city,
			State:   state,
			Country: country,
		},
		geocode: geocoder.Geocoding,
	}, nil
}

func (l *AddressLocator) Locate(ctx context.Context) (weather.Coordinates, error) {
	l.mu.Lock()
	if l.resolved != nil {
		c := *l.resolved
		l.mu.Unlock()
		return c, nil
	}
	l.mu.Unlock()

	type result struct {
		loc geocoder.Location
		err error
	}
	ch := make(chan result, 1)
	go func() {
		loc, err := l.geocode(l.address)
		ch <- result{loc: loc, err: err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return weather.Coordinates{}, fmt.Errorf("%w: %v", ErrDenied, ctx.Err())
	case res = <-ch:
	}

	if res.err != nil {
		return weather.Coordinates{}, fmt.Errorf("%w: geocoding %s: %v", ErrDenied, l.address.City, res.err)
	}

	c := weather.Coordinates{Lat: res.loc.Latitude, Lon: res.loc.Longitude}
	if !c.Valid() {
		return weather.Coordinates{}, fmt.Errorf("%w: geocoder returned %s", ErrDenied, c)
	}

	l.mu.Lock()
	l.resolved = &c
	l.mu.Unlock()
	return c, nil
}
