// Package offlineresolver implements the cascade search, candidate scoring,
// edge-case policies, and confidence assignment described in spec.md §4.C.
package offlineresolver

import "math"

// Mode selects between the normal and high-accuracy MatchingConfig.
type Mode int

const (
	ModeNormal Mode = iota
	ModeHighAccuracy
)

// ArtistMatchKind classifies how a candidate's artist credit matched the
// query's artist hint.
type ArtistMatchKind string

const (
	ArtistMatchNone     ArtistMatchKind = "none"
	ArtistMatchPartial  ArtistMatchKind = "partial"
	ArtistMatchExact    ArtistMatchKind = "exact"
	ArtistMatchPhonetic ArtistMatchKind = "phonetic"
	ArtistMatchFuzzy    ArtistMatchKind = "fuzzy"
)

// AlbumMatchKind classifies how a candidate's release matched the query's
// album hint.
type AlbumMatchKind string

const (
	AlbumMatchNone    AlbumMatchKind = "none"
	AlbumMatchPartial AlbumMatchKind = "partial"
	AlbumMatchExact   AlbumMatchKind = "exact"
)

// Confidence is the four-level label spec.md §3/§8 assigns to a MatchResult.
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
	ConfidenceNoMatch Confidence = "no_match"
)

// Candidate is a single cascade row, scored for selection. Ephemeral,
// per-query scope only.
type Candidate struct {
	ArtistCredit string
	ReleaseName  string
	RecordingName string
	RawScore     int64
	Weight       float64
	ArtistMatch  ArtistMatchKind
	AlbumMatch   AlbumMatchKind
}

// MatchResult is the offline resolver's output, per spec.md §3.
type MatchResult struct {
	ArtistName    string
	HasArtist     bool
	ReleaseName   string
	HasRelease    bool
	Confidence    Confidence
	Margin        float64
	TopCandidates []Candidate
	Reason        string
}

// PositiveInfinity is the margin reported when there is only one candidate.
var PositiveInfinity = math.Inf(1)

// MatchingConfig holds the enumerated matching knobs as a single immutable
// value, passed by reference into the resolver and hot-swapped atomically
// by SetMode (spec.md §9 "Dynamic config kwargs / settings dicts").
type MatchingConfig struct {
	Mode Mode

	MinEffectiveTitleLength int
	HighFrequencyThreshold  int

	MaxScore            int64
	MinConfidenceMargin float64
	MinAbsoluteScore    float64

	ArtistHintExactBonus    float64
	ArtistHintPartialBonus  float64
	ArtistPhoneticBonus     float64
	ArtistFuzzyBonus        float64
	AlbumHintExactBonus     float64
	AlbumHintPartialBonus   float64

	JaccardPartialThreshold     float64
	EnhancedSimilarityThreshold float64

	AlbumHintBoostInSQL bool
}

// DefaultConfig returns the normal-mode MatchingConfig with spec.md §4.C
// defaults.
func DefaultConfig() *MatchingConfig {
	return &MatchingConfig{
		Mode:                        ModeNormal,
		MinEffectiveTitleLength:     3,
		HighFrequencyThreshold:      50,
		MaxScore:                    5_000_000,
		MinConfidenceMargin:         500_000,
		MinAbsoluteScore:            1_000_000,
		ArtistHintExactBonus:        10_000_000,
		ArtistHintPartialBonus:      5_000_000,
		ArtistPhoneticBonus:         2_000_000,
		ArtistFuzzyBonus:            2_000_000,
		AlbumHintExactBonus:         5_000_000,
		AlbumHintPartialBonus:       3_000_000,
		JaccardPartialThreshold:     0.5,
		EnhancedSimilarityThreshold: 0.8,
		AlbumHintBoostInSQL:         true,
	}
}

// HighAccuracyConfig returns a copy of DefaultConfig with Mode switched to
// high-accuracy (raises row_limit behavior lives in the Store call site;
// this struct only carries the matching-side knobs).
func HighAccuracyConfig() *MatchingConfig {
	cfg := DefaultConfig()
	cfg.Mode = ModeHighAccuracy
	return cfg
}
