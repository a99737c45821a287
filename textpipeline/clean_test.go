package textpipeline

import (
	"strings"
	"testing"
)

func TestCleanConservative(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips parenthetical", "Blinding Lights (Remix)", "blinding lights"},
		{"strips bracketed", "Hotline Bling [Extended Mix]", "hotline bling"},
		{"strips feat suffix", "Stay ft. Justin Bieber", "stay"},
		{"strips featuring suffix", "No Role Modelz featuring Anyone", "no role modelz"},
		{"plain title unchanged", "Circles", "circles"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanConservative(tt.in); got != tt.want {
				t.Errorf("CleanConservative(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanConservativeNoVariantCharsOrDoubleSpace(t *testing.T) {
	inputs := []string{
		"Don’t Stop (Live) ft. Someone",
		"“Weird”   Al   (Parody)",
		"Say  You  Will",
	}
	for _, in := range inputs {
		got := CleanConservative(in)
		for variant := range apostropheVariants {
			if strings.ContainsRune(got, variant) {
				t.Errorf("CleanConservative(%q) = %q contains apostrophe variant %q", in, got, variant)
			}
		}
		for variant := range quoteVariants {
			if strings.ContainsRune(got, variant) {
				t.Errorf("CleanConservative(%q) = %q contains quote variant %q", in, got, variant)
			}
		}
		if strings.Contains(got, "  ") {
			t.Errorf("CleanConservative(%q) = %q has doubled internal whitespace", in, got)
		}
	}
}

func TestCleanConservativeIdempotent(t *testing.T) {
	inputs := []string{"Blinding Lights (Remix) ft. Someone", "Circles", ""}
	for _, in := range inputs {
		once := CleanConservative(in)
		twice := CleanConservative(once)
		if once != twice {
			t.Errorf("CleanConservative not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestCleanAggressive(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"drops punctuation", "Rock & Roll!", "rockroll"},
		{"drops parens then symbols", "Don't Stop (Believin')", "dontstop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanAggressive(tt.in); got != tt.want {
				t.Errorf("CleanAggressive(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
