package offlineresolver

import (
	"strings"

	"github.com/nerveband/amp-resolver/offlinestore"
	"github.com/nerveband/amp-resolver/textpipeline"
)

func tokenSetsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for t := range a {
		if _, ok := b[t]; !ok {
			return false
		}
	}
	return true
}

func substringEitherDirection(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// ScoreCandidate computes a Candidate's weight and match classifications per
// spec.md §4.C "Candidate scoring". highAccuracy enables the fuzzy-only
// artist-match bonus, the only path that activates fuzzy scoring.
func ScoreCandidate(row offlinestore.Row, artistHintClean, albumHintClean string, cfg *MatchingConfig, highAccuracy bool) Candidate {
	raw := cfg.MaxScore - row.Score
	weight := float64(raw)

	artistMatch := ArtistMatchNone
	if artistHintClean != "" {
		hintTokens := textpipeline.TokenizeArtistCredit(artistHintClean)
		rowTokens := textpipeline.TokenizeArtistCredit(row.ArtistCreditNameClean)

		switch {
		case tokenSetsEqual(hintTokens, rowTokens):
			artistMatch = ArtistMatchExact
			weight += cfg.ArtistHintExactBonus
		case substringEitherDirection(row.ArtistCreditNameClean, artistHintClean) ||
			textpipeline.JaccardSimilarity(hintTokens, rowTokens) >= cfg.JaccardPartialThreshold:
			artistMatch = ArtistMatchPartial
			weight += cfg.ArtistHintPartialBonus
		case textpipeline.Soundex(row.ArtistCreditNameClean) == textpipeline.Soundex(artistHintClean) &&
			textpipeline.Soundex(artistHintClean) != "":
			artistMatch = ArtistMatchPhonetic
			weight += cfg.ArtistPhoneticBonus
		case highAccuracy && textpipeline.EnhancedArtistSimilarity(row.ArtistCreditNameClean, artistHintClean) >= cfg.EnhancedSimilarityThreshold:
			artistMatch = ArtistMatchFuzzy
			weight += cfg.ArtistFuzzyBonus
		}
	}

	albumMatch := AlbumMatchNone
	if albumHintClean != "" {
		switch {
		case row.ReleaseNameClean == albumHintClean:
			albumMatch = AlbumMatchExact
			weight += cfg.AlbumHintExactBonus
		case substringEitherDirection(row.ReleaseNameClean, albumHintClean):
			albumMatch = AlbumMatchPartial
			weight += cfg.AlbumHintPartialBonus
		}
	}

	return Candidate{
		ArtistCredit:  row.ArtistCreditName,
		ReleaseName:   row.ReleaseName,
		RecordingName: row.RecordingName,
		RawScore:      row.Score,
		Weight:        weight,
		ArtistMatch:   artistMatch,
		AlbumMatch:    albumMatch,
	}
}
