package ui

import (
	"slices"
	"strings"
)

// MaxSuggestionDistance is the largest edit distance Suggest reports.
const MaxSuggestionDistance = 3

// Suggest returns up to limit candidates within MaxSuggestionDistance of target, closest
// first. Matching ignores case.
//
//	Suggest("Pst", []string{"Post", "Person", "Comment"}, 3) // ["Post"]
func Suggest(target string, candidates []string, limit int) []string {
	type match struct {
		value    string
		distance int
	}

	var matches []match
	for _, c := range candidates {
		if d := levenshtein(strings.ToLower(target), strings.ToLower(c)); d <= MaxSuggestionDistance {
			matches = append(matches, match{value: c, distance: d})
		}
	}
	slices.SortStableFunc(matches, func(a, b match) int { return a.distance - b.distance })

	out := make([]string, 0, limit)
	for i := 0; i < len(matches) && i < limit; i++ {
		out = append(out, matches[i].value)
	}
	return out
}

// levenshtein is the number of single character edits turning a into b.
func levenshtein(a, b string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
