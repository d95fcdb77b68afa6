package weather

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	reading Reading
	err     error
	cities  []string
	coords  []Coordinates
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FetchByCity(_ context.Context, city string) (Reading, error) {
	f.cities = append(f.cities, city)
	return f.reading, f.err
}

func (f *fakeProvider) FetchByCoords(_ context.Context, c Coordinates) (Reading, error) {
	f.coords = append(f.coords, c)
	return f.reading, f.err
}

type lookupRecord struct {
	kind, outcome string
}

type fakeRecorder struct {
	records []lookupRecord
}

func (r *fakeRecorder) ObserveLookup(kind, outcome string, _ float64) {
	r.records = append(r.records, lookupRecord{kind, outcome})
}

var dhaka = Reading{TemperatureC: 30.7, Humidity: 70, WindSpeed: 3.2, Name: "Dhaka", IconCode: "01d"}

func TestNewSnapshot_DhakaScenario(t *testing.T) {
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	got := NewSnapshot(dhaka, at)

	assert.Equal(t, Snapshot{
		Temperature: 30,
		Humidity:    70,
		WindSpeed:   3.2,
		Location:    "Dhaka",
		IconKey:     "01d",
		FetchedAt:   at,
	}, got)
}

func TestNewSnapshot_FloorsTemperature(t *testing.T) {
	tests := []struct {
		temp float64
		want int
	}{
		{30.99, 30},
		{0.4, 0},
		{-0.2, -1},
		{-7.8, -8},
		{12, 12},
	}
	for _, tt := range tests {
		got := NewSnapshot(Reading{TemperatureC: tt.temp}, time.Now())
		assert.Equal(t, tt.want, got.Temperature, "temp %v", tt.temp)
	}
}

func TestLookupIcon_FixedCodesAreMapped(t *testing.T) {
	fixed := []string{"01d", "01n", "02d", "02n", "03d", "04d", "04n", "09d", "09n", "10d", "10n", "13d", "13n"}
	for _, code := range fixed {
		_, ok := LookupIcon(code)
		assert.True(t, ok, code)
	}
	assert.Equal(t, fixed, IconCodes())
}

func TestLookupIcon_Assets(t *testing.T) {
	assert.Equal(t, IconClear, ResolveIcon("01n"))
	assert.Equal(t, IconCloud, ResolveIcon("03d"))
	assert.Equal(t, IconDrizzle, ResolveIcon("04n"))
	assert.Equal(t, IconDrizzle, ResolveIcon("09d"))
	assert.Equal(t, IconRain, ResolveIcon("09n"))
	assert.Equal(t, IconSnow, ResolveIcon("13d"))
}

func TestLookupIcon_UnknownFallsBack(t *testing.T) {
	for _, code := range []string{"", "03n", "11d", "50d", "zz"} {
		icon, ok := LookupIcon(code)
		assert.False(t, ok, code)
		assert.Equal(t, IconDefault, icon, code)
	}
}

func TestIconCodes_ReturnsCopy(t *testing.T) {
	codes := IconCodes()
	codes[0] = "mutated"
	assert.Equal(t, "01d", IconCodes()[0])
}

func TestService_LookupCity(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC))
	p := &fakeProvider{reading: dhaka}
	rec := &fakeRecorder{}
	s := NewService(p, rec, nil)
	s.clock = clock

	snap, err := s.LookupCity(context.Background(), "  Dhaka ")
	require.NoError(t, err)

	assert.Equal(t, []string{"Dhaka"}, p.cities)
	assert.Equal(t, 30, snap.Temperature)
	assert.Equal(t, clock.Now(), snap.FetchedAt)
	assert.Equal(t, []lookupRecord{{"city", OutcomeSuccess}}, rec.records)
}

func TestService_BlankCityNeverCallsProvider(t *testing.T) {
	p := &fakeProvider{reading: dhaka}
	s := NewService(p, nil, nil)

	for _, in := range []string{"", " ", "\t\n"} {
		_, err := s.LookupCity(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidQuery)
	}
	assert.Empty(t, p.cities)
}

func TestService_InvalidCoords(t *testing.T) {
	p := &fakeProvider{reading: dhaka}
	rec := &fakeRecorder{}
	s := NewService(p, rec, nil)

	_, err := s.LookupCoords(context.Background(), Coordinates{Lat: 91, Lon: 0})
	assert.ErrorIs(t, err, ErrInvalidQuery)
	assert.Empty(t, p.coords)
	assert.Equal(t, []lookupRecord{{"coords", OutcomeInvalid}}, rec.records)
}

func TestService_ProviderErrorPassesThrough(t *testing.T) {
	p := &fakeProvider{err: &ProviderError{Code: 404, Message: "city not found"}}
	rec := &fakeRecorder{}
	s := NewService(p, rec, nil)

	_, err := s.LookupCity(context.Background(), "Atlantis")
	pe, ok := AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, "city not found", pe.Message)
	assert.Equal(t, OutcomeProviderError, rec.records[0].outcome)
}

func TestService_NoProvider(t *testing.T) {
	s := NewService(nil, nil, nil)
	_, err := s.LookupCity(context.Background(), "Dhaka")
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestTransportError_Matching(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewTransportError(cause)

	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, cause)
	assert.Same(t, err, NewTransportError(err), "already wrapped errors are kept")
	assert.NoError(t, NewTransportError(nil))
	assert.Equal(t, OutcomeTransportError, Outcome(err))
}

func TestCoordinates_Valid(t *testing.T) {
	assert.True(t, Coordinates{Lat: 23.81, Lon: 90.41}.Valid())
	assert.True(t, Coordinates{Lat: -90, Lon: 180}.Valid())
	assert.False(t, Coordinates{Lat: -90.1, Lon: 0}.Valid())
	assert.False(t, Coordinates{Lat: 0, Lon: 181}.Valid())
}
