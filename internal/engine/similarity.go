package engine

import (
	"strings"
)

// TitleSimilarity computes word-overlap similarity between two titles.
//
// Both titles are lower-cased and tokenized on whitespace; the score is the
// number of tokens from a that appear anywhere in b, divided by the larger
// token count. The metric is fixed: the 0.8 duplicate threshold was tuned
// against it and does not transfer to other string distances.
func TitleSimilarity(a, b string) float64 {
	tokensA := strings.Fields(strings.ToLower(a))
	tokensB := strings.Fields(strings.ToLower(b))

	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	setB := make(map[string]bool, len(tokensB))
	for _, tok := range tokensB {
		setB[tok] = true
	}

	matches := 0
	for _, tok := range tokensA {
		if setB[tok] {
			matches++
		}
	}

	denom := len(tokensA)
	if len(tokensB) > denom {
		denom = len(tokensB)
	}

	return float64(matches) / float64(denom)
}
