package errors

import (
	"sort"
	"strings"
)

// maxSuggestionDistance bounds how different a suggestion may be from the input.
const maxSuggestionDistance = 3

// ClosestMatch returns the candidate closest to name by edit distance, or "" if
// none is close enough to be a plausible typo. Ties resolve alphabetically.
func ClosestMatch(name string, candidates []string) string {
	if name == "" || len(candidates) == 0 {
		return ""
	}

	sorted := make([]string, len(candidates))
	copy(sorted, candidates)
	sort.Strings(sorted)

	best := ""
	bestDistance := maxSuggestionDistance + 1
	lower := strings.ToLower(name)
	for _, candidate := range sorted {
		if candidate == name {
			continue
		}
		d := levenshtein(lower, strings.ToLower(candidate))
		if d < bestDistance {
			best = candidate
			bestDistance = d
		}
	}

	return best
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}
