package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestWeatherQuery(t *testing.T) {
	tests := []struct {
		name       string
		q, lat     string
		lon        string
		wantErr    error
		wantCity   string
		wantCoords bool
	}{
		{name: "city verbatim", q: " St. John's ", wantCity: " St. John's "},
		{name: "city wins over coords", q: "Seoul", lat: "1", lon: "2", wantCity: "Seoul"},
		{name: "coords", lat: "37.56", lon: "126.97", wantCoords: true},
		{name: "blank city falls to coords", q: "  ", lat: "0", lon: "0", wantCoords: true},
		{name: "nothing", wantErr: ErrMissingLocation},
		{name: "only lat", lat: "10", wantErr: ErrMissingLocation},
		{name: "bad lat", lat: "north", lon: "2", wantErr: ErrInvalidCoordinates},
		{name: "lat out of range", lat: "91", lon: "2", wantErr: ErrInvalidCoordinates},
		{name: "NaN", lat: "NaN", lon: "NaN", wantErr: ErrInvalidCoordinates},
		{name: "lon out of range", lat: "1", lon: "-180.5", wantErr: ErrInvalidCoordinates},
		{name: "control char", q: "sea\x00ttle", wantErr: ErrCityInvalidChars},
		{name: "too long", q: strings.Repeat("a", 101), wantErr: ErrCityTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WeatherQuery(tt.q, tt.lat, tt.lon, 100)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				if !IsValidation(err) {
					t.Errorf("IsValidation(%v) = false", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got.HasCoords != tt.wantCoords || got.City != tt.wantCity {
				t.Errorf("input = %+v", got)
			}
		})
	}
}

func TestCoordinates(t *testing.T) {
	lat, lon, err := Coordinates("-33.87", "151.21")
	if err != nil || lat != -33.87 || lon != 151.21 {
		t.Errorf("Coordinates() = %v, %v, %v", lat, lon, err)
	}
	if _, _, err := Coordinates("", "151"); !errors.Is(err, ErrMissingCoordinates) {
		t.Errorf("error = %v, want ErrMissingCoordinates", err)
	}
	if _, _, err := Coordinates("1", "x"); !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("error = %v, want ErrInvalidCoordinates", err)
	}
	if _, _, err := Coordinates("nan", "0"); !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("NaN latitude: error = %v, want ErrInvalidCoordinates", err)
	}
}

func TestIsValidation_Other(t *testing.T) {
	if IsValidation(errors.New("boom")) {
		t.Error("IsValidation(unrelated) = true")
	}
}
