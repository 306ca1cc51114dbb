package recommend

import "github.com/kjstillabower/weatherwise/internal/models"

// Activity branch names, also used as metric labels.
const (
	BranchThunderstorm = "thunderstorm"
	BranchRain         = "rain"
	BranchSnow         = "snow"
	BranchHotClear     = "hot_clear"
	BranchPleasant     = "pleasant"
	BranchFallback     = "fallback"
)

func indoor(name, emoji, reason string) models.Activity {
	return models.Activity{Name: name, Type: models.ActivityIndoor, Emoji: emoji, Reason: reason}
}

func outdoor(name, emoji, reason string) models.Activity {
	return models.Activity{Name: name, Type: models.ActivityOutdoor, Emoji: emoji, Reason: reason}
}

var activitySets = map[string][]models.Activity{
	BranchThunderstorm: {
		indoor("Movie marathon at home", "🎬", "Perfect excuse to stay in and binge your watchlist."),
		indoor("Board games or puzzles", "🎲", "Great way to spend time with family or friends indoors."),
		indoor("Bake something", "🍪", "Cozy baking session while listening to the rain."),
		indoor("Read a book", "📚", "Storm outside = perfect reading atmosphere."),
	},
	BranchRain: {
		indoor("Visit a café", "☕", "Warm drink and good vibes on a rainy day."),
		indoor("Museum or gallery", "🏛️", "Explore culture without getting wet."),
		indoor("Indoor workout", "🏋️", "Gym session keeps you active on rainy days."),
		indoor("Read or study", "📖", "Rain makes the perfect background noise for focus."),
		indoor("Cook a new recipe", "🍳", "Try something new in the kitchen."),
	},
	BranchSnow: {
		outdoor("Build a snowman", "⛄", "Classic and fun snow activity."),
		outdoor("Sledding", "🛷", "Find a slope and enjoy the snow."),
		indoor("Cozy café visit", "☕", "Warm up with a hot drink after being outside."),
		indoor("Indoor board games", "🎲", "Stay warm and have fun indoors."),
	},
	BranchHotClear: {
		outdoor("Beach or lake visit", "🏖️", "Perfect weather to cool off near water."),
		outdoor("Cycling", "🚴", "Great conditions for a long bike ride."),
		outdoor("Picnic in the park", "🧺", "Grab some food and enjoy the sunshine."),
		outdoor("Outdoor café", "🍹", "Sit outside and soak up the good weather."),
		outdoor("Hiking", "🥾", "Clear skies make for great trail views."),
	},
	BranchPleasant: {
		outdoor("Walk in the park", "🌿", "Fresh air and a pleasant stroll."),
		outdoor("Cycling", "🚴", "Cool and comfortable for a bike ride."),
		outdoor("Outdoor brunch", "🥐", "Nice weather to eat outside."),
		indoor("Visit a bookstore", "📚", "Browse books in a cozy space."),
		outdoor("Photography walk", "📷", "Overcast light is great for photos."),
	},
	BranchFallback: {
		indoor("Coffee shop visit", "☕", "Warm up with a hot drink."),
		outdoor("Quick outdoor walk", "🚶", "Bundle up and get some fresh air."),
		indoor("Indoor gym", "🏋️", "Stay active without braving the cold too long."),
		indoor("Museum or gallery", "🏛️", "Explore indoors and stay warm."),
	},
}

// ActivityBranch evaluates the decision list; the first match wins.
func ActivityBranch(temp int, condition string) string {
	switch {
	case condition == condThunderstorm:
		return BranchThunderstorm
	case condition == condRain || condition == condDrizzle:
		return BranchRain
	case condition == condSnow:
		return BranchSnow
	case temp >= 25 && condition == condClear:
		return BranchHotClear
	case temp >= 10 && (condition == condClear || condition == condClouds):
		return BranchPleasant
	default:
		return BranchFallback
	}
}

// Activities returns a fresh copy of the curated list for the matching branch.
func Activities(temp int, condition string) []models.Activity {
	set := activitySets[ActivityBranch(temp, condition)]
	out := make([]models.Activity, len(set))
	copy(out, set)
	return out
}
