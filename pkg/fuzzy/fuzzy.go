// Package fuzzy accepts typed phrases that are close enough to the expected
// intention phrase, using the optimal string alignment variant of the
// Damerau-Levenshtein distance (insertions, deletions, substitutions and
// adjacent transpositions).
package fuzzy

import (
	"strings"

	edlib "github.com/hbollon/go-edlib"
)

// DefaultMaxDistance is the edit budget used when fuzzy matching is enabled.
const DefaultMaxDistance = 2

// Options selects between exact and fuzzy phrase checks.
type Options struct {
	Fuzzy       bool
	MaxDistance int
}

// DefaultOptions returns fuzzy matching with DefaultMaxDistance.
func DefaultOptions() Options {
	return Options{Fuzzy: true, MaxDistance: DefaultMaxDistance}
}

// Distance returns the edit distance between a and b, counted in runes.
func Distance(a, b string) int {
	return edlib.OSADamerauLevenshteinDistance(a, b)
}

// Match reports whether input is within maxDistance edits of expected. Case
// and surrounding whitespace are ignored. Empty input or an empty expected
// phrase never match.
func Match(input, expected string, maxDistance int) bool {
	input = strings.ToLower(strings.TrimSpace(input))
	expected = strings.ToLower(strings.TrimSpace(expected))
	if input == "" || expected == "" || maxDistance < 0 {
		return false
	}
	return Distance(input, expected) <= maxDistance
}

// PartialMatch compares input against the prefix of expected that has the
// same number of runes as input. It is meant for live feedback while the user
// types: once a prefix is accepted, appending the next expected character
// keeps it accepted.
func PartialMatch(input, expected string, maxDistance int) bool {
	if input == "" || expected == "" || maxDistance < 0 {
		return false
	}
	in := []rune(strings.ToLower(input))
	exp := []rune(strings.ToLower(expected))
	if len(exp) > len(in) {
		exp = exp[:len(in)]
	}
	return Distance(string(in), string(exp)) <= maxDistance
}

// Check applies opts to a full phrase. With fuzzy matching off the phrase must
// match exactly, ignoring case and surrounding whitespace.
func Check(input, expected string, opts Options) bool {
	if !opts.Fuzzy {
		return Match(input, expected, 0)
	}
	return Match(input, expected, opts.MaxDistance)
}

// CheckPartial is Check for live input feedback.
func CheckPartial(input, expected string, opts Options) bool {
	if !opts.Fuzzy {
		return PartialMatch(input, expected, 0)
	}
	return PartialMatch(input, expected, opts.MaxDistance)
}
