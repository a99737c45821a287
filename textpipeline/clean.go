package textpipeline

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// parenExpr strips any parenthetical or bracketed span, mirroring the
// teacher's clean.go approach of naming capture groups and trimming
// whatever survives.
var parenExpr = regexp2.MustCompile(`\s*[\(\[\{].*?[\)\]\}]\s*`, regexp2.None)

// featSuffixExpr matches a trailing "feat"/"featuring"/"ft." clause and
// everything after it.
var featSuffixExpr = regexp2.MustCompile(`(?i)\s+(?<feat>feat(?:uring)?\.?|ft\.?)\b.*$`, regexp2.None)

var nonAlnumExpr = regexp2.MustCompile(`[^\p{L}\p{N}]+`, regexp2.None)

func regexp2ReplaceAll(re *regexp2.Regexp, s, repl string) string {
	out, err := re.Replace(s, repl, -1, -1)
	if err != nil {
		return s
	}
	return out
}

// CleanConservative applies NormalizeBase, strips parenthetical/bracketed
// content, strips "feat"/"featuring"/"ft." suffixes, and collapses
// whitespace. Used for indexing and human-visible comparison.
func CleanConservative(s string) string {
	base := NormalizeBase(s)
	if base == "" {
		return ""
	}

	cleaned := regexp2ReplaceAll(parenExpr, base, " ")
	cleaned = regexp2ReplaceAll(featSuffixExpr, cleaned, "")
	cleaned = whitespaceRun.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// CleanAggressive applies CleanConservative then drops all non-alphanumeric
// characters. Used only as a last-resort matching key.
func CleanAggressive(s string) string {
	conservative := CleanConservative(s)
	if conservative == "" {
		return ""
	}
	return regexp2ReplaceAll(nonAlnumExpr, conservative, "")
}
