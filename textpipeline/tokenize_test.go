package textpipeline

import "testing"

func hasAllTokens(tokens map[string]struct{}, want ...string) bool {
	for _, w := range want {
		if _, ok := tokens[w]; !ok {
			return false
		}
	}
	return true
}

func TestTokenizeArtistCredit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"feat dot", "A feat. B", []string{"a", "b"}},
		{"ampersand chain", "A & B & C", []string{"a", "b", "c"}},
		{"with connector", "Drake with 21 Savage", []string{"drake", "21 savage"}},
		{"versus connector", "A vs. B", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TokenizeArtistCredit(tt.in)
			if !hasAllTokens(got, tt.want...) {
				t.Errorf("TokenizeArtistCredit(%q) = %v, want superset of %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTokenizeArtistCreditEmpty(t *testing.T) {
	got := TokenizeArtistCredit("")
	if len(got) != 0 {
		t.Errorf("TokenizeArtistCredit(\"\") = %v, want empty", got)
	}
}

func TestJaccardSimilarity(t *testing.T) {
	a := TokenizeArtistCredit("A & B")
	b := TokenizeArtistCredit("A & C")
	sim := JaccardSimilarity(a, b)
	if sim <= 0 || sim >= 1 {
		t.Errorf("JaccardSimilarity(%v, %v) = %v, want strictly between 0 and 1", a, b, sim)
	}
}

func TestTokensShareAny(t *testing.T) {
	a := TokenizeArtistCredit("The Weeknd")
	b := TokenizeArtistCredit("The Weeknd feat. Ariana Grande")
	if !TokensShareAny(a, b) {
		t.Errorf("expected %v and %v to share a token", a, b)
	}
}
