package planner

import (
	"strings"

	"github.com/alex-user-go/tripplan/internal/planner/types"
)

var attractions = map[string][]string{
	"paris": {
		"Visit the Eiffel Tower",
		"Explore the Louvre Museum",
		"Stroll along the Seine River",
		"Try authentic French cuisine",
	},
	"london": {
		"Visit Buckingham Palace",
		"See Big Ben and the Houses of Parliament",
		"Explore the British Museum",
		"Take a ride on the London Eye",
	},
	"new york": {
		"Visit Times Square",
		"Explore Central Park",
		"See the Statue of Liberty",
		"Catch a Broadway show",
	},
	"tokyo": {
		"Visit Shibuya Crossing",
		"Explore Asakusa and Senso-ji Temple",
		"Experience the food scene in Tsukiji",
		"Visit Tokyo Skytree",
	},
}

// cityCodes maps IATA metropolitan codes to attraction keys.
var cityCodes = map[string]string{
	"par": "paris",
	"lon": "london",
	"nyc": "new york",
	"tyo": "tokyo",
}

var rainWords = []string{"rain", "shower", "drizzle", "thunderstorm"}

// Recommendations returns packing advice for the weather, if any, followed
// by things to do at the destination.
func Recommendations(destination string, weather *types.WeatherSnapshot) []string {
	var out []string

	if weather != nil {
		if advice := packingAdvice(*weather); advice != "" {
			out = append(out, advice)
		}
	}

	key := strings.ToLower(strings.Join(strings.Fields(destination), " "))
	if city, ok := cityCodes[key]; ok {
		key = city
	}
	if list, ok := attractions[key]; ok {
		return append(out, list...)
	}

	return append(out,
		"Research popular attractions in "+destination,
		"Learn about local customs in "+destination,
	)
}

func packingAdvice(w types.WeatherSnapshot) string {
	condition := strings.ToLower(w.Condition)
	for _, word := range rainWords {
		if strings.Contains(condition, word) {
			return "Pack rain gear and waterproof clothing"
		}
	}

	switch {
	case w.TemperatureC < 10:
		return "Pack warm clothing and layers"
	case w.TemperatureC > 25:
		return "Pack light clothing and sun protection"
	default:
		return ""
	}
}
