package scoring

import (
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// lcsOptions computes insert/delete-only edit distance: with substitutions
// costing as much as a delete plus an insert, the distance between two
// strings of lengths m and n is m+n-2*LCS.
var lcsOptions = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 2,
	Matches: levenshtein.IdenticalRunes,
}

// MatchIntent compares an actual intent against the expected one and returns
// a similarity in [0,1]. Exact matches (case-insensitive, trimmed) return
// 1.0; otherwise the score is the LCS-based sequence ratio 2*LCS/(m+n) over
// the normalized strings. Both empty returns 1.0, exactly one empty 0.0.
//
// The caller owns any pass/fail threshold interpretation; MatchIntent always
// returns the continuous score.
func MatchIntent(actual, expected string) float64 {
	a := strings.ToLower(strings.TrimSpace(actual))
	b := strings.ToLower(strings.TrimSpace(expected))

	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}

	ar := []rune(a)
	br := []rune(b)
	dist := levenshtein.DistanceForStrings(ar, br, lcsOptions)
	total := len(ar) + len(br)
	return 1.0 - float64(dist)/float64(total)
}
