// Package airquality flattens the provider's air pollution payload into a
// single 1-5 index reading and describes it.
package airquality

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kjstillabower/weatherwise/internal/models"
)

var (
	// ErrParse marks a payload that does not match the expected schema.
	ErrParse = errors.New("unexpected air pollution payload")
	// ErrNoData means the provider returned no reading for the location.
	ErrNoData = errors.New("no air quality data for location")
)

type rawReading struct {
	Main *struct {
		AQI int `json:"aqi"`
	} `json:"main"`
	Components struct {
		PM25 float64 `json:"pm2_5"`
		PM10 float64 `json:"pm10"`
		NO2  float64 `json:"no2"`
		O3   float64 `json:"o3"`
		CO   float64 `json:"co"`
	} `json:"components"`
}

type rawPayload struct {
	List []rawReading `json:"list"`
}

// Normalize takes the first reading of the payload. The index passes through
// unchanged.
func Normalize(data []byte) (models.AirQuality, error) {
	var raw rawPayload
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.AirQuality{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(raw.List) == 0 {
		return models.AirQuality{}, ErrNoData
	}
	r := raw.List[0]
	if r.Main == nil {
		return models.AirQuality{}, fmt.Errorf("%w: list[0].main missing", ErrParse)
	}
	return models.AirQuality{
		AQI:  r.Main.AQI,
		PM25: r.Components.PM25,
		PM10: r.Components.PM10,
		NO2:  r.Components.NO2,
		O3:   r.Components.O3,
		CO:   r.Components.CO,
	}, nil
}

// Level describes one AQI value.
type Level struct {
	Index       int
	Label       string
	Description string
}

var levels = []Level{
	{1, "Good", "Air quality is satisfactory."},
	{2, "Fair", "Acceptable air quality."},
	{3, "Moderate", "Sensitive groups may be affected."},
	{4, "Poor", "Everyone may experience effects."},
	{5, "Very Poor", "Health alert, avoid outdoors."},
}

// LevelFor returns the level for aqi, clamped to 1..5.
func LevelFor(aqi int) Level {
	i := min(max(aqi, 1), len(levels))
	return levels[i-1]
}

// Pollutant is one concentration with its safe limit, both µg/m³.
type Pollutant struct {
	Key       string
	Label     string
	Value     float64
	SafeLimit float64
}

// OverLimit reports whether the concentration exceeds its safe limit.
func (p Pollutant) OverLimit() bool {
	return p.Value > p.SafeLimit
}

// Pollutants lists the reading's concentrations in display order.
func Pollutants(aq models.AirQuality) []Pollutant {
	return []Pollutant{
		{"pm25", "PM2.5", aq.PM25, 25},
		{"pm10", "PM10", aq.PM10, 50},
		{"no2", "NO₂", aq.NO2, 40},
		{"o3", "O₃", aq.O3, 100},
		{"co", "CO", aq.CO, 10000},
	}
}
