// Package textpipeline implements normalization, cleaning, tokenization,
// phonetic codes, and similarity primitives used to match Apple Music track
// identifiers against canonical MusicBrainz data. It is purely functional:
// no I/O, no mutation of shared state.
package textpipeline

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// apostropheVariants maps curly, modifier-letter, grave, and acute
// apostrophe-like runes to the straight apostrophe.
var apostropheVariants = map[rune]rune{
	'’': '\'', // RIGHT SINGLE QUOTATION MARK
	'‘': '\'', // LEFT SINGLE QUOTATION MARK
	'ʼ': '\'', // MODIFIER LETTER APOSTROPHE
	'`': '\'', // GRAVE ACCENT
	'´': '\'', // ACUTE ACCENT
	'ʹ': '\'', // MODIFIER LETTER PRIME
}

// quoteVariants maps curly, low-9, and angle quote runes to the straight
// double quote.
var quoteVariants = map[rune]rune{
	'“': '"', // LEFT DOUBLE QUOTATION MARK
	'”': '"', // RIGHT DOUBLE QUOTATION MARK
	'„': '"', // DOUBLE LOW-9 QUOTATION MARK
	'«': '"', // LEFT-POINTING DOUBLE ANGLE QUOTATION MARK
	'»': '"', // RIGHT-POINTING DOUBLE ANGLE QUOTATION MARK
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeBase applies NFKC decomposition+recomposition, folds apostrophe
// and quote variants to their straight forms, lowercases, and collapses
// internal whitespace. Nil/empty input maps to the empty string.
func NormalizeBase(s string) string {
	if s == "" {
		return ""
	}

	s = norm.NFKC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if repl, ok := apostropheVariants[r]; ok {
			b.WriteRune(repl)
			continue
		}
		if repl, ok := quoteVariants[r]; ok {
			b.WriteRune(repl)
			continue
		}
		b.WriteRune(r)
	}

	out := strings.ToLower(b.String())
	out = whitespaceRun.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// NormalizeForMatching applies NormalizeBase then replaces '$' with 's' only
// when flanked by word characters on both sides, so "A$AP" -> "asap" while
// "$100" is preserved.
func NormalizeForMatching(s string) string {
	base := NormalizeBase(s)
	if base == "" {
		return ""
	}

	runes := []rune(base)
	var b strings.Builder
	b.Grow(len(base))
	for i, r := range runes {
		if r == '$' {
			hasLeft := i > 0 && isWordRune(runes[i-1])
			hasRight := i < len(runes)-1 && isWordRune(runes[i+1])
			if hasLeft && hasRight {
				b.WriteRune('s')
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
