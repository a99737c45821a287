package offlineresolver

import (
	"strconv"
	"strings"
)

// genericTitles is the frozen set of titles treated as ambiguous regardless
// of length, per spec.md §4.C.
var genericTitles = map[string]struct{}{
	"intro": {}, "outro": {}, "interlude": {}, "prelude": {},
	"intermission": {}, "skit": {}, "untitled": {}, "track": {},
	"hidden track": {},
}

// IsShortTitle reports whether the cleaned title's effective length is
// below MinEffectiveTitleLength.
func IsShortTitle(cleanTitle string, cfg *MatchingConfig) bool {
	return len([]rune(cleanTitle)) < cfg.MinEffectiveTitleLength
}

// IsGenericTitle reports membership in the frozen generic-title set.
func IsGenericTitle(cleanTitle string) bool {
	_, ok := genericTitles[cleanTitle]
	return ok
}

// IsNumericTitle reports whether, after stripping a leading '#', the
// remainder is entirely digits.
func IsNumericTitle(cleanTitle string) bool {
	stripped := strings.TrimPrefix(cleanTitle, "#")
	if stripped == "" {
		return false
	}
	_, err := strconv.Atoi(stripped)
	return err == nil
}

// IsAmbiguousTitle is true when any of the short/generic/numeric edge cases
// apply.
func IsAmbiguousTitle(cleanTitle string, cfg *MatchingConfig) bool {
	return IsShortTitle(cleanTitle, cfg) || IsGenericTitle(cleanTitle) || IsNumericTitle(cleanTitle)
}

// IsCommonTitle reports whether the title's candidate count meets the
// high-frequency threshold.
func IsCommonTitle(candidateCount int, cfg *MatchingConfig) bool {
	return candidateCount >= cfg.HighFrequencyThreshold
}
