package weather

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Service fetches current weather from the provider and maps it for display.
// It holds no state between calls.
type Service struct {
	provider Provider
	recorder Recorder
	clock    clockwork.Clock
	logger   *zap.Logger
}

// NewService creates a new Service. recorder and logger may be nil.
func NewService(provider Provider, recorder Recorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		provider: provider,
		recorder: recorder,
		clock:    clockwork.NewRealClock(),
		logger:   logger.Named("weather-service"),
	}
}

// LookupCity fetches the weather for a city name. Surrounding whitespace is ignored.
func (s *Service) LookupCity(ctx context.Context, city string) (Snapshot, error) {
	return s.Lookup(ctx, CityQuery(city))
}

// LookupCoords fetches the weather at a position.
func (s *Service) LookupCoords(ctx context.Context, coords Coordinates) (Snapshot, error) {
	return s.Lookup(ctx, CoordsQuery(coords))
}

// Lookup validates q, performs one provider call and maps the reading.
// There is no retry and no cache.
func (s *Service) Lookup(ctx context.Context, q Query) (Snapshot, error) {
	start := s.clock.Now()

	snapshot, err := s.lookup(ctx, q)

	outcome := Outcome(err)
	if s.recorder != nil {
		s.recorder.ObserveLookup(q.Kind(), outcome, s.clock.Since(start).Seconds())
	}

	if err != nil {
		s.logger.Warn("weather lookup failed",
			zap.String("kind", q.Kind()),
			zap.String("query", q.String()),
			zap.String("outcome", outcome),
			zap.Error(err))
		return Snapshot{}, err
	}

	s.logger.Debug("weather lookup succeeded",
		zap.String("kind", q.Kind()),
		zap.String("query", q.String()),
		zap.String("location", snapshot.Location),
		zap.Int("temperature", snapshot.Temperature))
	return snapshot, nil
}

func (s *Service) lookup(ctx context.Context, q Query) (Snapshot, error) {
	if s.provider == nil {
		return Snapshot{}, ErrNoProvider
	}

	var (
		reading Reading
		err     error
	)
	if q.IsCoords() {
		if !q.Coords.Valid() {
			return Snapshot{}, fmt.Errorf("%w: coordinates %s out of range", ErrInvalidQuery, q.Coords)
		}
		reading, err = s.provider.FetchByCoords(ctx, *q.Coords)
	} else {
		city := strings.TrimSpace(q.City)
		if city == "" {
			return Snapshot{}, fmt.Errorf("%w: city name is blank", ErrInvalidQuery)
		}
		reading, err = s.provider.FetchByCity(ctx, city)
	}
	if err != nil {
		return Snapshot{}, err
	}

	return NewSnapshot(reading, s.clock.Now()), nil
}
