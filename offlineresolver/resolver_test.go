package offlineresolver

import (
	"math"
	"testing"
)

func candidateWithWeight(weight float64, artistMatch ArtistMatchKind) Candidate {
	return Candidate{ArtistCredit: "Some Artist", Weight: weight, ArtistMatch: artistMatch}
}

func TestSelectWinnerSingleCandidate(t *testing.T) {
	cfg := DefaultConfig()
	result, err := selectWinner([]Candidate{candidateWithWeight(1_000_000, ArtistMatchNone)}, cfg, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence != ConfidenceHigh {
		t.Errorf("confidence = %s, want high", result.Confidence)
	}
	if !math.IsInf(result.Margin, 1) {
		t.Errorf("margin = %v, want +Inf", result.Margin)
	}
}

func TestSelectWinnerHighMarginAndScore(t *testing.T) {
	cfg := DefaultConfig()
	candidates := []Candidate{
		candidateWithWeight(2_000_000, ArtistMatchNone),
		candidateWithWeight(1_000_000, ArtistMatchNone),
	}
	result, err := selectWinner(candidates, cfg, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence != ConfidenceHigh {
		t.Errorf("confidence = %s, want high (margin=1M >= 500k, top=2M >= 1M)", result.Confidence)
	}
}

func TestSelectWinnerExactArtistMatchMedium(t *testing.T) {
	cfg := DefaultConfig()
	candidates := []Candidate{
		candidateWithWeight(1_100_000, ArtistMatchExact),
		candidateWithWeight(1_000_000, ArtistMatchNone),
	}
	result, err := selectWinner(candidates, cfg, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence != ConfidenceMedium {
		t.Errorf("confidence = %s, want medium (margin below threshold but exact artist match)", result.Confidence)
	}
}

func TestSelectWinnerNoMatchBelowThresholds(t *testing.T) {
	cfg := DefaultConfig()
	candidates := []Candidate{
		candidateWithWeight(200_000, ArtistMatchNone),
		candidateWithWeight(150_000, ArtistMatchNone),
	}
	result, err := selectWinner(candidates, cfg, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence != ConfidenceNoMatch {
		t.Errorf("confidence = %s, want no_match", result.Confidence)
	}
}

func TestSelectWinnerHighAccuracyLowFallback(t *testing.T) {
	cfg := HighAccuracyConfig()
	candidates := []Candidate{
		candidateWithWeight(200_000, ArtistMatchNone),
		candidateWithWeight(100_000, ArtistMatchNone),
	}
	result, err := selectWinner(candidates, cfg, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence != ConfidenceLow {
		t.Errorf("confidence = %s, want low (high-accuracy mode never returns no_match past this point)", result.Confidence)
	}
}

func TestSortByWeightDescending(t *testing.T) {
	candidates := []Candidate{
		candidateWithWeight(100, ArtistMatchNone),
		candidateWithWeight(300, ArtistMatchNone),
		candidateWithWeight(200, ArtistMatchNone),
	}
	sortByWeight(candidates)
	if candidates[0].Weight != 300 || candidates[1].Weight != 200 || candidates[2].Weight != 100 {
		t.Errorf("sortByWeight did not sort descending: %v", candidates)
	}
}

func TestTopNTruncates(t *testing.T) {
	candidates := []Candidate{
		candidateWithWeight(1, ArtistMatchNone),
		candidateWithWeight(2, ArtistMatchNone),
	}
	top := topN(candidates, 3)
	if len(top) != 2 {
		t.Errorf("topN(2-element slice, 3) = %d elements, want 2", len(top))
	}
}

func TestSetModeSwapsConfigAndNotifies(t *testing.T) {
	r := New(nil, nil)
	notified := false
	r.OnModeChange(func() { notified = true })

	r.SetMode(ModeHighAccuracy)
	if r.Mode() != ModeHighAccuracy {
		t.Errorf("Mode() = %v, want ModeHighAccuracy", r.Mode())
	}
	if !notified {
		t.Error("SetMode did not invoke the registered onModeChange callback")
	}
}

func TestResolveCommonTitleAlbumHintWins(t *testing.T) {
	candidates := []Candidate{
		{ArtistCredit: "Artist A", ReleaseName: "Greatest Hits", Weight: 100, AlbumMatch: AlbumMatchExact, ArtistMatch: ArtistMatchPartial},
		{ArtistCredit: "Artist B", Weight: 200, ArtistMatch: ArtistMatchExact},
	}
	result, err := resolveCommonTitle(candidates, "greatest hits")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence != ConfidenceHigh || result.ArtistName != "Artist A" {
		t.Errorf("result = %+v, want high confidence matching Artist A via album hint", result)
	}
}

func TestResolveCommonTitleArtistOnlyMedium(t *testing.T) {
	candidates := []Candidate{
		{ArtistCredit: "Artist B", Weight: 200, ArtistMatch: ArtistMatchExact},
	}
	result, err := resolveCommonTitle(candidates, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence != ConfidenceMedium || result.ArtistName != "Artist B" {
		t.Errorf("result = %+v, want medium confidence matching Artist B", result)
	}
}

func TestResolveObscureArtistNoHintReturnsLow(t *testing.T) {
	candidates := []Candidate{
		{ArtistCredit: "Obscure Artist", Weight: 50, ArtistMatch: ArtistMatchNone},
	}
	result, err := resolveObscureArtist(candidates, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence != ConfidenceLow || result.ArtistName != "Obscure Artist" {
		t.Errorf("result = %+v, want low confidence COLD-only pick", result)
	}
}

func TestResolveObscureArtistRequiresExactMatch(t *testing.T) {
	candidates := []Candidate{
		{ArtistCredit: "Somewhat Similar", Weight: 50, ArtistMatch: ArtistMatchPartial},
	}
	result, err := resolveObscureArtist(candidates, "exact hint")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence != ConfidenceNoMatch {
		t.Errorf("confidence = %s, want no_match (partial match insufficient for obscure artist)", result.Confidence)
	}
}
