package validation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/kjstillabower/weatherwise/internal/location"
)

var (
	// ErrMissingLocation is returned when neither a city nor a full coordinate pair is given.
	ErrMissingLocation = errors.New("provide lat/lon or city name")
	// ErrMissingCoordinates is returned when lat or lon is absent.
	ErrMissingCoordinates = errors.New("lat and lon are required")
	// ErrInvalidCoordinates is returned for unparsable or out-of-range coordinates.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrCityTooLong is returned when a city name exceeds the configured maximum.
	ErrCityTooLong = errors.New("city name too long")
	// ErrCityInvalidChars is returned when a city name contains control characters.
	ErrCityInvalidChars = errors.New("city name contains invalid characters")
)

// WeatherQuery builds a location input from /weather query parameters. A
// non-blank q wins over coordinates and is passed through unmodified; only
// control characters and names longer than maxLen runes are rejected.
func WeatherQuery(q, lat, lon string, maxLen int) (location.Input, error) {
	if strings.TrimSpace(q) != "" {
		if err := validateCity(q, maxLen); err != nil {
			return location.Input{}, err
		}
		return location.ByName(q), nil
	}
	if lat == "" || lon == "" {
		return location.Input{}, ErrMissingLocation
	}
	la, lo, err := parseCoordinates(lat, lon)
	if err != nil {
		return location.Input{}, err
	}
	return location.ByCoords(la, lo), nil
}

// Coordinates parses a required lat/lon pair.
func Coordinates(lat, lon string) (float64, float64, error) {
	if lat == "" || lon == "" {
		return 0, 0, ErrMissingCoordinates
	}
	return parseCoordinates(lat, lon)
}

func parseCoordinates(lat, lon string) (float64, float64, error) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: lat %q", ErrInvalidCoordinates, lat)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: lon %q", ErrInvalidCoordinates, lon)
	}
	if math.IsNaN(la) || math.IsNaN(lo) {
		return 0, 0, fmt.Errorf("%w: NaN", ErrInvalidCoordinates)
	}
	if la < -90 || la > 90 {
		return 0, 0, fmt.Errorf("%w: lat %v out of range", ErrInvalidCoordinates, la)
	}
	if lo < -180 || lo > 180 {
		return 0, 0, fmt.Errorf("%w: lon %v out of range", ErrInvalidCoordinates, lo)
	}
	return la, lo, nil
}

func validateCity(s string, maxLen int) error {
	if maxLen > 0 && len([]rune(s)) > maxLen {
		return ErrCityTooLong
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return ErrCityInvalidChars
		}
	}
	return nil
}

// IsValidation reports whether err is a client input error (400).
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingLocation) ||
		errors.Is(err, ErrMissingCoordinates) ||
		errors.Is(err, ErrInvalidCoordinates) ||
		errors.Is(err, ErrCityTooLong) ||
		errors.Is(err, ErrCityInvalidChars)
}
