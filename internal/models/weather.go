package models

import (
	"encoding/json"
	"strings"
)

// WeatherSnapshot is one normalized current-weather reading. Temperatures are
// always Celsius integers; conversion to Fahrenheit happens only at display time.
type WeatherSnapshot struct {
	City        string  `json:"city"`
	Country     string  `json:"country"`
	Temperature int     `json:"temperature"`
	FeelsLike   int     `json:"feelsLike"`
	Humidity    int     `json:"humidity"`
	Description string  `json:"description"`
	Condition   string  `json:"condition"`
	Icon        string  `json:"icon"`
	WindSpeed   int     `json:"windSpeed"`  // km/h
	Visibility  int     `json:"visibility"` // km
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Sunrise     int64   `json:"sunrise"`
	Sunset      int64   `json:"sunset"`
	Dt          int64   `json:"dt"`
}

// IsNight reports whether the provider icon code marks a night reading ("01n").
func (w WeatherSnapshot) IsNight() bool {
	return IsNightIcon(w.Icon)
}

// IsNightIcon reports whether an icon code ends in the night marker.
func IsNightIcon(icon string) bool {
	return strings.HasSuffix(icon, "n")
}

// ForecastDay aggregates all 3-hour samples sharing one calendar date.
type ForecastDay struct {
	Date        string `json:"date"`
	DateStr     string `json:"dateStr"`
	DayOfWeek   string `json:"dayOfWeek"`
	TempMin     int    `json:"tempMin"`
	TempMax     int    `json:"tempMax"`
	Description string `json:"description"`
	Condition   string `json:"condition"`
	Icon        string `json:"icon"`
	Humidity    int    `json:"humidity"`
	Pop         int    `json:"pop"`
}

// HourlyForecast is one 3-hour sample.
type HourlyForecast struct {
	Time        string `json:"time"`
	Hour        int    `json:"hour"`
	Temperature int    `json:"temperature"`
	FeelsLike   int    `json:"feelsLike"`
	Condition   string `json:"condition"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	Pop         int    `json:"pop"`
	Humidity    int    `json:"humidity"`
}

// AirQuality is one pollution reading. AQI runs 1 (Good) to 5 (Very Poor);
// concentrations are µg/m³.
type AirQuality struct {
	AQI  int     `json:"aqi"`
	PM25 float64 `json:"pm25"`
	PM10 float64 `json:"pm10"`
	NO2  float64 `json:"no2"`
	O3   float64 `json:"o3"`
	CO   float64 `json:"co"`
}

// Outfit is a clothing suggestion, one free-text value per slot.
type Outfit struct {
	Top       string `json:"top"`
	Bottom    string `json:"bottom"`
	Outer     string `json:"outer"`
	Shoes     string `json:"shoes"`
	Accessory string `json:"accessory"`
	Summary   string `json:"summary"`
}

// Activity types.
const (
	ActivityIndoor  = "indoor"
	ActivityOutdoor = "outdoor"
)

// Activity is one suggested thing to do.
type Activity struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Emoji  string `json:"emoji"`
	Reason string `json:"reason"`
}

// Recommendation bundles outfit, activities and a one-line summary of the day.
type Recommendation struct {
	Outfit       Outfit     `json:"outfit"`
	Activities   []Activity `json:"activities"`
	DailySummary string     `json:"dailySummary"`
}

// Unit is the temperature display preference.
type Unit string

const (
	Celsius    Unit = "C"
	Fahrenheit Unit = "F"
)

// Valid reports whether u is a known unit.
func (u Unit) Valid() bool {
	return u == Celsius || u == Fahrenheit
}

// ResolvedLocation describes the query actually sent to the provider. Name is
// the reverse-geocoded display override, when one applied.
type ResolvedLocation struct {
	Query string   `json:"query"`
	Lat   *float64 `json:"lat,omitempty"`
	Lon   *float64 `json:"lon,omitempty"`
	Name  string   `json:"name,omitempty"`
}

// WeatherBundle is the raw current and forecast payloads for one location,
// passed to callers unmodified.
type WeatherBundle struct {
	Weather  json.RawMessage   `json:"weather"`
	Forecast json.RawMessage   `json:"forecast"`
	Location *ResolvedLocation `json:"location,omitempty"`
}
