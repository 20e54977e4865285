package cli

import (
	"sort"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Suggest returns the items of haystack within maxSuggestionDistance edits of needle, closest first.
func Suggest(needle string, haystack []string, maxSuggestionDistance int) []string {
	r := []rune(needle)
	options := make([]suggestion, 0, len(haystack))
	for _, straw := range haystack {
		distance := levenshtein.DistanceForStrings(r, []rune(straw), levenshtein.DefaultOptions)
		if len(straw) > 0 && distance <= maxSuggestionDistance {
			options = append(options, suggestion{s: straw, dist: distance})
		}
	}
	sort.SliceStable(options, func(i, j int) bool { return options[i].dist < options[j].dist })
	ret := make([]string, len(options))
	for i, o := range options {
		ret[i] = o.s
	}
	return ret
}

// PrettyPrintSuggestion produces a single message suggesting alternatives for needle,
// or the empty string if there are none close enough.
func PrettyPrintSuggestion(needle string, haystack []string, maxSuggestionDistance int) string {
	options := Suggest(needle, haystack, maxSuggestionDistance)
	switch len(options) {
	case 0:
		return ""
	case 1:
		return "\nMaybe you meant " + options[0] + " ?"
	}
	// Leave a space before the punctuation so the suggestions can be selected without it.
	return "\nMaybe you meant " + strings.Join(options[:len(options)-1], " , ") + " or " + options[len(options)-1] + " ?"
}

type suggestion struct {
	s    string
	dist int
}
