// Package display holds presentation-only transforms. Nothing here mutates a
// snapshot; stored temperatures stay Celsius.
package display

import (
	"fmt"
	"math"

	"github.com/kjstillabower/weatherwise/internal/models"
)

// TempValue converts a Celsius integer into unit, rounding once.
func TempValue(celsius int, unit models.Unit) int {
	if unit == models.Fahrenheit {
		return int(math.Round(float64(celsius)*9/5 + 32))
	}
	return celsius
}

// UnitSuffix returns "°C" or "°F".
func UnitSuffix(unit models.Unit) string {
	if unit == models.Fahrenheit {
		return "°F"
	}
	return "°C"
}

// FormatTemp renders a Celsius value, e.g. "21°C" or "70°F".
func FormatTemp(celsius int, unit models.Unit) string {
	return fmt.Sprintf("%d%s", TempValue(celsius, unit), UnitSuffix(unit))
}

var conditionEmoji = map[string]string{
	"Clear":        "☀️",
	"Clouds":       "☁️",
	"Rain":         "🌧️",
	"Drizzle":      "🌦️",
	"Snow":         "❄️",
	"Thunderstorm": "⛈️",
	"Mist":         "🌫️",
	"Fog":          "🌫️",
}

// ConditionEmoji picks an emoji for a condition; icon codes ending in "n"
// mark night.
func ConditionEmoji(condition, icon string) string {
	if condition == "Clear" && models.IsNightIcon(icon) {
		return "🌙"
	}
	if e, ok := conditionEmoji[condition]; ok {
		return e
	}
	return "🌤️"
}
