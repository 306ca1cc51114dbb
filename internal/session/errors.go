package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied is returned by a Locator when location access is refused.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrLocationTimeout is returned when the device location is not available in time.
	ErrLocationTimeout = errors.New("location request timed out")
	// ErrSuperseded is returned by a load whose result was discarded because a
	// newer load started.
	ErrSuperseded = errors.New("superseded by a newer request")
)

// User-facing copy.
const (
	msgPermissionDenied = "Please allow location access or search for a city below."
	msgLocationTimeout  = "Could not get your location in time. Search for a city below."
	msgFetchFailed      = "Failed to load weather data"
	msgCityNotFound     = "City not found"
	msgGeneric          = "Something went wrong"
)

// FetchError is a non-success answer for the primary weather request.
// Message is the provider's own message when it sent one.
type FetchError struct {
	StatusCode int
	Message    string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("weather request failed (%d): %s", e.StatusCode, e.Message)
}

// newFetchError builds a FetchError from the provider detail body, reading
// its "message" field.
func newFetchError(status int, detail []byte) *FetchError {
	fe := &FetchError{StatusCode: status, Message: msgFetchFailed}
	var d struct {
		Message any `json:"message"`
	}
	if len(detail) > 0 && json.Unmarshal(detail, &d) == nil {
		if s, ok := d.Message.(string); ok && s != "" {
			fe.Message = s
		}
	}
	return fe
}

// userMessage turns a failed cycle into the text shown to the user.
func userMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return msgPermissionDenied
	case errors.Is(err, ErrLocationTimeout):
		return msgLocationTimeout
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Message
	}
	return fallback
}
