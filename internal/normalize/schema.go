package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrParse marks a provider payload whose shape does not match the expected schema.
var ErrParse = errors.New("unexpected provider payload")

type rawCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type rawMain struct {
	Temp      *float64 `json:"temp"`
	FeelsLike *float64 `json:"feels_like"`
	Humidity  *int     `json:"humidity"`
}

func (m *rawMain) check(path string) error {
	switch {
	case m == nil:
		return fmt.Errorf("%w: %s missing", ErrParse, path)
	case m.Temp == nil:
		return fmt.Errorf("%w: %s.temp missing", ErrParse, path)
	case m.FeelsLike == nil:
		return fmt.Errorf("%w: %s.feels_like missing", ErrParse, path)
	case m.Humidity == nil:
		return fmt.Errorf("%w: %s.humidity missing", ErrParse, path)
	}
	return nil
}

func checkConditions(c []rawCondition, path string) error {
	if len(c) == 0 {
		return fmt.Errorf("%w: %s is empty", ErrParse, path)
	}
	return nil
}

// RawCurrent is the provider's current-weather payload.
type RawCurrent struct {
	Name  string `json:"name"`
	Coord *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Weather    []rawCondition `json:"weather"`
	Main       *rawMain       `json:"main"`
	Visibility float64        `json:"visibility"`
	Wind       struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Dt  int64 `json:"dt"`
	Sys struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
}

// RawSample is one 3-hour entry of the forecast payload.
type RawSample struct {
	Dt      int64          `json:"dt"`
	DtTxt   string         `json:"dt_txt"`
	Main    *rawMain       `json:"main"`
	Weather []rawCondition `json:"weather"`
	Pop     float64        `json:"pop"`
}

// date is the provider's own calendar date label, "2024-01-15".
func (s RawSample) date() string {
	d, _, _ := strings.Cut(s.DtTxt, " ")
	return d
}

func (s RawSample) isNoon() bool {
	_, clock, ok := strings.Cut(s.DtTxt, " ")
	return ok && strings.HasPrefix(clock, "12:00")
}

// RawForecast is the provider's 5-day / 3-hour forecast payload.
type RawForecast struct {
	List []RawSample `json:"list"`
}

// DecodeCurrent parses and validates a current-weather payload.
func DecodeCurrent(data []byte) (RawCurrent, error) {
	var raw RawCurrent
	if err := json.Unmarshal(data, &raw); err != nil {
		return RawCurrent{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if raw.Coord == nil {
		return RawCurrent{}, fmt.Errorf("%w: coord missing", ErrParse)
	}
	if err := raw.Main.check("main"); err != nil {
		return RawCurrent{}, err
	}
	if err := checkConditions(raw.Weather, "weather"); err != nil {
		return RawCurrent{}, err
	}
	return raw, nil
}

// DecodeForecast parses and validates a forecast payload.
func DecodeForecast(data []byte) (RawForecast, error) {
	var raw RawForecast
	if err := json.Unmarshal(data, &raw); err != nil {
		return RawForecast{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if raw.List == nil {
		return RawForecast{}, fmt.Errorf("%w: list missing", ErrParse)
	}
	for i, s := range raw.List {
		path := fmt.Sprintf("list[%d]", i)
		if s.date() == "" {
			return RawForecast{}, fmt.Errorf("%w: %s.dt_txt missing", ErrParse, path)
		}
		if err := s.Main.check(path + ".main"); err != nil {
			return RawForecast{}, err
		}
		if err := checkConditions(s.Weather, path+".weather"); err != nil {
			return RawForecast{}, err
		}
	}
	return raw, nil
}
