package textpipeline

import (
	"strings"

	"github.com/xrash/smetrics"
)

// FuzzyRatio returns a Levenshtein-based similarity in [0,1]. Contract:
// FuzzyRatio(x,x) == 1, it is symmetric, and it is only invoked in
// high-accuracy mode (the cascade's cheaper levels never call it).
func FuzzyRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	aRunes := []rune(a)
	bRunes := []rune(b)
	maxLen := len(aRunes)
	if len(bRunes) > maxLen {
		maxLen = len(bRunes)
	}
	if maxLen == 0 {
		return 1
	}

	dist := smetrics.Levenshtein(a, b, 1, 1, 1)
	ratio := 1 - float64(dist)/float64(maxLen)
	if ratio < 0 {
		ratio = 0
	}
	return ratio
}

// phoneticSimilarity returns 1 when the Soundex codes of a and b match,
// else 0.
func phoneticSimilarity(a, b string) float64 {
	if Soundex(a) == Soundex(b) {
		return 1
	}
	return 0
}

// EnhancedArtistSimilarity combines fuzzy and phonetic similarity:
// 0.6*fuzzy_ratio + 0.4*phonetic_similarity, with a 10% multiplicative
// boost (capped at 1.0) when fuzzy > 0.8 and phonetic > 0.75.
func EnhancedArtistSimilarity(a, b string) float64 {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)

	fuzzy := FuzzyRatio(a, b)
	phonetic := phoneticSimilarity(a, b)

	score := 0.6*fuzzy + 0.4*phonetic
	if fuzzy > 0.8 && phonetic > 0.75 {
		score *= 1.1
	}
	if score > 1 {
		score = 1
	}
	return score
}
