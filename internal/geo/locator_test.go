package geo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-by-city/internal/weather"
)

func TestUnsupported(t *testing.T) {
	_, err := Unsupported{}.Locate(context.Background())
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestStatic(t *testing.T) {
	want := weather.Coordinates{Lat: 23.8103, Lon: 90.4125}
	l, err := NewStatic(want)
	require.NoError(t, err)

	got, err := l.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = NewStatic(weather.Coordinates{Lat: 100})
	assert.Error(t, err)
}

func TestStatic_CancelledContextIsDenied(t *testing.T) {
	l, err := NewStatic(weather.Coordinates{Lat: 1, Lon: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Locate(ctx)
	assert.ErrorIs(t, err, ErrDenied)
}

func TestNewAddressLocator_RequiresKeyAndCity(t *testing.T) {
	_, err := NewAddressLocator("", "Dhaka", "", "BD")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = NewAddressLocator("key", "", "", "BD")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestAddressLocator_ResolvesOnce(t *testing.T) {
	l, err := NewAddressLocator("key", "Dhaka", "", "Bangladesh")
	require.NoError(t, err)

	calls := 0
	l.geocode = func(a geocoder.Address) (geocoder.Location, error) {
		calls++
		assert.Equal(t, "Dhaka", a.City)
		assert.Equal(t, "Bangladesh", a.Country)
		return geocoder.Location{Latitude: 23.81, Longitude: 90.41}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := l.Locate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, weather.Coordinates{Lat: 23.81, Lon: 90.41}, got)
	}
	assert.Equal(t, 1, calls)
}

func TestAddressLocator_FailureIsDenied(t *testing.T) {
	l, err := NewAddressLocator("key", "Nowhere", "", "")
	require.NoError(t, err)
	l.geocode = func(geocoder.Address) (geocoder.Location, error) {
		return geocoder.Location{}, errors.New("ZERO_RESULTS")
	}

	_, err = l.Locate(context.Background())
	assert.ErrorIs(t, err, ErrDenied)
	assert.Contains(t, err.Error(), "ZERO_RESULTS")
}

func TestAddressLocator_ContextDeadline(t *testing.T) {
	l, err := NewAddressLocator("key", "Slow", "", "")
	require.NoError(t, err)
	release := make(chan struct{})
	defer close(release)
	l.geocode = func(geocoder.Address) (geocoder.Location, error) {
		<-release
		return geocoder.Location{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = l.Locate(ctx)
	assert.ErrorIs(t, err, ErrDenied)
}
