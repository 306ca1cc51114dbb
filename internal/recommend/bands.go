package recommend

// Band is a half-open temperature interval in °C. Upper bounds are exclusive.
type Band int

const (
	BandExtremeCold Band = iota // < -10
	BandFreezing                // < 0
	BandCool                    // < 10
	BandMild                    // < 18
	BandWarm                    // < 25
	BandHot                     // >= 25
)

var bandNames = [...]string{"extreme_cold", "freezing", "cool", "mild", "warm", "hot"}

func (b Band) String() string {
	if b < BandExtremeCold || b > BandHot {
		return "unknown"
	}
	return bandNames[b]
}

// BandFor returns the outfit band for temp.
func BandFor(temp int) Band {
	switch {
	case temp < -10:
		return BandExtremeCold
	case temp < 0:
		return BandFreezing
	case temp < 10:
		return BandCool
	case temp < 18:
		return BandMild
	case temp < 25:
		return BandWarm
	default:
		return BandHot
	}
}

// conditions
const (
	condClear        = "Clear"
	condClouds       = "Clouds"
	condRain         = "Rain"
	condDrizzle      = "Drizzle"
	condSnow         = "Snow"
	condThunderstorm = "Thunderstorm"
	condMist         = "Mist"
	condFog          = "Fog"
)

// windyAbove is in km/h, the unit WeatherSnapshot stores.
const windyAbove = 30

func isWet(condition string) bool {
	return condition == condRain || condition == condDrizzle || condition == condThunderstorm
}
