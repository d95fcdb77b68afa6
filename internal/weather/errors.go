package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport matches every TransportError via errors.Is.
	ErrTransport = errors.New("weather transport failure")

	// ErrInvalidQuery is returned for blank city names or out-of-range coordinates.
	ErrInvalidQuery = errors.New("invalid weather query")

	// ErrNoProvider is returned when the service has no provider configured.
	ErrNoProvider = errors.New("no weather provider configured")
)

// ProviderError means the provider answered but reported a failure code.
// Message is the provider's own text and is shown to the user verbatim.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// TransportError covers network, timeout and decode failures alike.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%v: %v", ErrTransport, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// NewTransportError wraps err; a nil err stays nil.
func NewTransportError(err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Err: err}
}

// AsProviderError extracts a ProviderError from err's chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

func isProviderError(err error) bool {
	_, ok := AsProviderError(err)
	return ok
}

func isInvalid(err error) bool {
	return errors.Is(err, ErrInvalidQuery)
}
