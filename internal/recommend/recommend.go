// Package recommend derives outfit, activity and summary suggestions from a
// weather snapshot using fixed, hand-written thresholds.
//
// Every function here is pure: identical input always yields identical output.
package recommend

import "github.com/kjstillabower/weatherwise/internal/models"

// Recommend combines Outfit, Activities and Summarize for one snapshot.
func Recommend(w models.WeatherSnapshot) models.Recommendation {
	return models.Recommendation{
		Outfit:       Outfit(w.Temperature, w.Condition, w.Humidity, w.WindSpeed),
		Activities:   Activities(w.Temperature, w.Condition),
		DailySummary: Summarize(w.Temperature, w.Condition, w.FeelsLike),
	}
}
