package textpipeline

import "testing"

func TestSoundexLength(t *testing.T) {
	inputs := []string{"Smith", "A", "", "Robert", "Xavier-Jones"}
	for _, in := range inputs {
		got := Soundex(in)
		if got != "" && len(got) != 4 {
			t.Errorf("Soundex(%q) = %q, want length 4 or empty", in, got)
		}
	}
}

func TestSoundexEqualInputsEqualCodes(t *testing.T) {
	if Soundex("Smith") != Soundex("Smith") {
		t.Errorf("Soundex not stable for identical input")
	}
}

func TestSoundexKnownPairs(t *testing.T) {
	tests := []struct{ a, b string }{
		{"Smith", "Smyth"},
		{"Robert", "Rupert"},
	}
	for _, tt := range tests {
		if got, want := Soundex(tt.a), Soundex(tt.b); got != want {
			t.Errorf("Soundex(%q)=%q, Soundex(%q)=%q, want equal", tt.a, got, tt.b, want)
		}
	}
}
