package weather

import (
	"context"
)

// Provider abstracts the third-party current-weather API.
//
// Implementations return *ProviderError when the API reports a failure code and
// a TransportError for anything that prevents reading a well-formed answer.
type Provider interface {
	Name() string
	FetchByCity(ctx context.Context, city string) (Reading, error)
	FetchByCoords(ctx context.Context, coords Coordinates) (Reading, error)
}

// Recorder receives lookup outcomes. observability.Metrics satisfies it.
type Recorder interface {
	ObserveLookup(kind string, outcome string, seconds float64)
}

// Lookup outcome labels.
const (
	OutcomeSuccess        = "success"
	OutcomeProviderError  = "provider_error"
	OutcomeTransportError = "transport_error"
	OutcomeInvalid        = "invalid"
)

// Outcome classifies err into one of the outcome labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case isProviderError(err):
		return OutcomeProviderError
	case isInvalid(err):
		return OutcomeInvalid
	default:
		return OutcomeTransportError
	}
}
