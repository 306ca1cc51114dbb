package recommend

import "fmt"

var conditionPhrases = map[string]string{
	condClear:        "Clear skies today",
	condClouds:       "Cloudy skies today",
	condRain:         "Rainy day ahead",
	condDrizzle:      "Light drizzle expected",
	condSnow:         "Snowy conditions today",
	condThunderstorm: "Thunderstorms expected — stay safe indoors",
	condMist:         "Misty and low visibility",
	condFog:          "Foggy conditions today",
}

const genericPhrase = "Mixed weather today"

// feelsColderBy is how much colder feelsLike must be before it is mentioned.
const feelsColderBy = 3

// Summarize builds the one-line daily summary. Bands match Outfit except that
// everything below zero shares one closing.
func Summarize(temp int, condition string, feelsLike int) string {
	base, ok := conditionPhrases[condition]
	if !ok {
		base = genericPhrase
	}
	feel := ""
	if feelsLike < temp-feelsColderBy {
		feel = fmt.Sprintf(" but feels like %d°C", feelsLike)
	}

	var closing string
	switch {
	case temp < 0:
		closing = " — freezing temperatures, stay warm."
	case temp < 10:
		closing = " — a jacket is a must."
	case temp < 18:
		closing = " — mild and comfortable."
	case temp < 25:
		closing = " — great weather to be outside."
	default:
		closing = " — hot day, stay hydrated and wear sunscreen."
	}
	return base + feel + closing
}
