package recommend

import "github.com/kjstillabower/weatherwise/internal/models"

// Outfit picks clothing for the band of temp. Modifiers swap single slots; the
// band's summary never changes.
func Outfit(temp int, condition string, humidity, windSpeed int) models.Outfit {
	wet := isWet(condition)
	snow := condition == condSnow
	windy := windSpeed > windyAbove

	switch BandFor(temp) {
	case BandExtremeCold:
		return models.Outfit{
			Top:       "Thermal undershirt + heavy wool sweater",
			Bottom:    "Thermal leggings + thick insulated pants",
			Outer:     "Heavy down parka or winter coat",
			Shoes:     pick(snow, "Insulated waterproof snow boots", "Insulated winter boots"),
			Accessory: "Thick scarf, warm hat, and insulated gloves",
			Summary:   "Extreme cold — layer up completely and cover all exposed skin.",
		}
	case BandFreezing:
		return models.Outfit{
			Top:       "Thermal undershirt + fleece or thick knit sweater",
			Bottom:    "Warm jeans or insulated pants",
			Outer:     pick(snow, "Waterproof insulated coat", "Heavy winter coat"),
			Shoes:     pick(snow, "Waterproof snow boots", "Warm ankle boots"),
			Accessory: "Scarf, beanie, and gloves",
			Summary:   "Freezing — bundle up with proper winter layers.",
		}
	case BandCool:
		return models.Outfit{
			Top:       pick(wet, "Long-sleeve shirt + light sweater", "Long-sleeve shirt or light knit"),
			Bottom:    "Jeans or trousers",
			Outer:     pick(wet, "Waterproof rain jacket", pick(windy, "Windbreaker", "Light coat or jacket")),
			Shoes:     pick(wet, "Waterproof boots or rain shoes", "Sneakers or ankle boots"),
			Accessory: pick(wet, "Umbrella + light scarf", "Light scarf"),
			Summary:   "Cool weather — a jacket is essential.",
		}
	case BandMild:
		return models.Outfit{
			Top:       "T-shirt or light long-sleeve",
			Bottom:    "Jeans or chinos",
			Outer:     pick(wet, "Light rain jacket", pick(windy, "Light windbreaker", "Light cardigan or hoodie")),
			Shoes:     pick(wet, "Waterproof sneakers", "Sneakers or casual shoes"),
			Accessory: pick(wet, "Compact umbrella", pick(humidity > 70, "Light scarf", "Not needed")),
			Summary:   "Mild weather — a light layer is enough.",
		}
	case BandWarm:
		return models.Outfit{
			Top:       "T-shirt or polo",
			Bottom:    "Light pants, chinos, or shorts",
			Outer:     pick(wet, "Light rain jacket", "Not needed"),
			Shoes:     pick(wet, "Waterproof sneakers", "Sneakers or loafers"),
			Accessory: pick(wet, "Umbrella", "Sunglasses"),
			Summary:   "Comfortable and warm — dress light and enjoy it.",
		}
	default:
		return models.Outfit{
			Top:       "Light t-shirt or tank top",
			Bottom:    "Shorts or light breathable pants",
			Outer:     "Not needed",
			Shoes:     "Sandals or breathable sneakers",
			Accessory: pick(wet, "Umbrella + cap", "Sunglasses + cap"),
			Summary:   "Hot outside — stay cool with breathable, light clothing.",
		}
	}
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
