package client

import (
	"errors"
	"fmt"
)

var (
	ErrNotConfigured    = errors.New("API key not configured")
	ErrInvalidAPIKey    = errors.New("invalid API key")
	ErrLocationNotFound = errors.New("location not found")
	ErrUpstreamFailure  = errors.New("upstream failure")
	ErrRateLimited      = errors.New("rate limited")
	ErrNetwork          = errors.New("network error")
)

// UpstreamError is a non-success answer from OpenWeather. Body holds whatever
// the provider sent so the boundary can echo it as detail.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %v", e.Endpoint, e.StatusCode, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// AsUpstream returns the *UpstreamError in err's chain, if any.
func AsUpstream(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
