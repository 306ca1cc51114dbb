// Package normalize converts raw provider payloads into the internal weather model.
//
// Temperatures are rounded to whole degrees Celsius here and nowhere else.
package normalize

import (
	"fmt"
	"math"
	"time"

	"github.com/kjstillabower/weatherwise/internal/models"
)

const (
	// MaxForecastDays caps the number of aggregated days.
	MaxForecastDays = 7
	// HourlySamples is the number of 3-hour samples in the hourly view (~24h).
	HourlySamples = 8
)

var dayNames = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// round breaks .5 ties toward +Inf, so -10.5 becomes -10.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}

// Current builds a snapshot. A non-empty nameOverride replaces the provider's
// city name and nothing else.
func Current(raw RawCurrent, nameOverride string) models.WeatherSnapshot {
	cond := raw.Weather[0]
	city := raw.Name
	if nameOverride != "" {
		city = nameOverride
	}
	return models.WeatherSnapshot{
		City:        city,
		Country:     raw.Sys.Country,
		Temperature: round(*raw.Main.Temp),
		FeelsLike:   round(*raw.Main.FeelsLike),
		Humidity:    *raw.Main.Humidity,
		Description: cond.Description,
		Condition:   cond.Main,
		Icon:        cond.Icon,
		WindSpeed:   round(raw.Wind.Speed * 3.6),
		Visibility:  round(raw.Visibility / 1000),
		Lat:         raw.Coord.Lat,
		Lon:         raw.Coord.Lon,
		Sunrise:     raw.Sys.Sunrise,
		Sunset:      raw.Sys.Sunset,
		Dt:          raw.Dt,
	}
}

// Forecast groups samples by the provider's date label, in first-seen order,
// and aggregates at most MaxForecastDays days.
func Forecast(raw RawForecast) []models.ForecastDay {
	var order []string
	groups := make(map[string][]RawSample)
	for _, s := range raw.List {
		d := s.date()
		if _, ok := groups[d]; !ok {
			order = append(order, d)
		}
		groups[d] = append(groups[d], s)
	}
	if len(order) > MaxForecastDays {
		order = order[:MaxForecastDays]
	}

	days := make([]models.ForecastDay, 0, len(order))
	for _, d := range order {
		days = append(days, aggregateDay(d, groups[d]))
	}
	return days
}

func aggregateDay(date string, samples []RawSample) models.ForecastDay {
	rep := representative(samples)
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		lo = math.Min(lo, *s.Main.Temp)
		hi = math.Max(hi, *s.Main.Temp)
	}
	cond := rep.Weather[0]
	day := models.ForecastDay{
		Date:        date,
		TempMin:     round(lo),
		TempMax:     round(hi),
		Description: cond.Description,
		Condition:   cond.Main,
		Icon:        cond.Icon,
		Humidity:    *rep.Main.Humidity,
		Pop:         round(rep.Pop * 100),
	}
	// The label is a plain calendar date, so no timezone shift applies.
	if t, err := time.Parse(time.DateOnly, date); err == nil {
		day.DateStr = fmt.Sprintf("%d/%d", int(t.Month()), t.Day())
		day.DayOfWeek = dayNames[t.Weekday()]
	}
	return day
}

// representative picks the noon sample, else the one at index len/2.
func representative(samples []RawSample) RawSample {
	for _, s := range samples {
		if s.isNoon() {
			return s
		}
	}
	return samples[len(samples)/2]
}

// Hourly returns the first HourlySamples samples with clock labels in loc.
// A nil loc means time.Local.
func Hourly(raw RawForecast, loc *time.Location) []models.HourlyForecast {
	if loc == nil {
		loc = time.Local
	}
	n := min(len(raw.List), HourlySamples)
	hours := make([]models.HourlyForecast, 0, n)
	for _, s := range raw.List[:n] {
		t := time.Unix(s.Dt, 0).In(loc)
		cond := s.Weather[0]
		hours = append(hours, models.HourlyForecast{
			Time:        t.Format("15:04"),
			Hour:        t.Hour(),
			Temperature: round(*s.Main.Temp),
			FeelsLike:   round(*s.Main.FeelsLike),
			Condition:   cond.Main,
			Icon:        cond.Icon,
			Description: cond.Description,
			Pop:         round(s.Pop * 100),
			Humidity:    *s.Main.Humidity,
		})
	}
	return hours
}

// Snapshot decodes and normalizes a current-weather payload.
func Snapshot(data []byte, nameOverride string) (models.WeatherSnapshot, error) {
	raw, err := DecodeCurrent(data)
	if err != nil {
		return models.WeatherSnapshot{}, err
	}
	return Current(raw, nameOverride), nil
}

// Outlook decodes a forecast payload into days and hours.
func Outlook(data []byte, loc *time.Location) ([]models.ForecastDay, []models.HourlyForecast, error) {
	raw, err := DecodeForecast(data)
	if err != nil {
		return nil, nil, err
	}
	return Forecast(raw), Hourly(raw, loc), nil
}
