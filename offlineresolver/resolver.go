package offlineresolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/nerveband/amp-resolver/logging"
	"github.com/nerveband/amp-resolver/offlinestore"
	"github.com/nerveband/amp-resolver/textpipeline"
)

// ErrResolverUnavailable wraps offlinestore query failures; the Dispatcher
// treats it as a signal to fall back to the online resolver.
var ErrResolverUnavailable = errors.New("offlineresolver: resolver unavailable")

// Resolver consumes the Text Pipeline and Offline Store and emits
// MatchResult values. It never raises for missing data (returns no_match);
// only Store errors propagate as ErrResolverUnavailable.
type Resolver struct {
	store  *offlinestore.Store
	cfg    atomic.Pointer[MatchingConfig]
	logger logging.Logger

	// onModeChange is invoked after swapping MatchingConfig, giving a
	// caller that owns the Mapping Cache a chance to clear the in-memory
	// LRU. New registers no callback, and neither the Dispatcher nor
	// cmd/resolvecli registers one.
	onModeChange func()
}

// New constructs a Resolver in normal mode.
func New(store *offlinestore.Store, logger logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Nop
	}
	r := &Resolver{store: store, logger: logger}
	r.cfg.Store(DefaultConfig())
	return r
}

// OnModeChange registers the callback invoked when SetMode runs.
func (r *Resolver) OnModeChange(fn func()) {
	r.onModeChange = fn
}

// SetMode atomically replaces the active MatchingConfig and notifies the
// registered mode-change callback.
func (r *Resolver) SetMode(mode Mode) {
	var cfg *MatchingConfig
	if mode == ModeHighAccuracy {
		cfg = HighAccuracyConfig()
	} else {
		cfg = DefaultConfig()
	}
	r.cfg.Store(cfg)
	if r.onModeChange != nil {
		r.onModeChange()
	}
}

// Mode returns the resolver's current mode.
func (r *Resolver) Mode() Mode {
	return r.cfg.Load().Mode
}

// Search resolves a track identifier against the Offline Store, applying
// edge-case policies, the HOT/COLD cascade, candidate scoring, and
// confidence assignment.
func (r *Resolver) Search(ctx context.Context, title, artistHint, albumHint string) (MatchResult, error) {
	cfg := r.cfg.Load()

	cleanTitle := textpipeline.CleanConservative(title)
	artistHintClean := textpipeline.NormalizeForMatching(artistHint)
	albumHintClean := textpipeline.CleanConservative(albumHint)

	ambiguous := IsAmbiguousTitle(cleanTitle, cfg)
	if ambiguous && artistHintClean == "" {
		return MatchResult{Confidence: ConfidenceNoMatch, Margin: 0, Reason: "ambiguous title requires artist hint"}, nil
	}

	common := false
	if !ambiguous {
		count, err := r.store.TitleCandidateCount(ctx, cleanTitle)
		if err != nil {
			return MatchResult{}, fmt.Errorf("%w: %v", ErrResolverUnavailable, err)
		}
		common = IsCommonTitle(count, cfg)
		if common && artistHintClean == "" {
			return MatchResult{Confidence: ConfidenceNoMatch, Reason: "common title requires artist hint"}, nil
		}
	}

	result, err := runCascade(ctx, r.store, cleanTitle, artistHintClean, albumHintClean, cfg)
	if err != nil {
		return MatchResult{}, fmt.Errorf("%w: %v", ErrResolverUnavailable, err)
	}

	if len(result.rows) == 0 {
		return MatchResult{Confidence: ConfidenceNoMatch, Reason: "no cascade candidates"}, nil
	}

	highAccuracy := cfg.Mode == ModeHighAccuracy
	candidates := make([]Candidate, 0, len(result.rows))
	for _, row := range result.rows {
		candidates = append(candidates, ScoreCandidate(row, artistHintClean, albumHintClean, cfg, highAccuracy))
	}

	if ambiguous {
		candidates = filterByArtistTokenOverlap(candidates, artistHintClean)
		if len(candidates) == 0 {
			return MatchResult{Confidence: ConfidenceNoMatch, Reason: "ambiguous title candidates share no artist token with hint"}, nil
		}
	}

	if common {
		return resolveCommonTitle(candidates, albumHintClean)
	}

	if result.obscure {
		return resolveObscureArtist(candidates, artistHintClean)
	}

	return selectWinner(candidates, cfg, "cascade selection")
}

func filterByArtistTokenOverlap(candidates []Candidate, artistHintClean string) []Candidate {
	hintTokens := textpipeline.TokenizeArtistCredit(artistHintClean)
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		rowTokens := textpipeline.TokenizeArtistCredit(c.ArtistCredit)
		if textpipeline.TokensShareAny(hintTokens, rowTokens) {
			kept = append(kept, c)
		}
	}
	return kept
}

// resolveCommonTitle implements spec.md §4.C "Common title": requires an
// artist hint (already enforced by the caller). Album hint matching a
// candidate's release gives high confidence; artist-only match gives
// medium; otherwise no_match.
func resolveCommonTitle(candidates []Candidate, albumHintClean string) (MatchResult, error) {
	sortByWeight(candidates)

	for _, c := range candidates {
		if albumHintClean != "" && c.AlbumMatch == AlbumMatchExact {
			return MatchResult{
				ArtistName: c.ArtistCredit, HasArtist: true,
				ReleaseName: c.ReleaseName, HasRelease: true,
				Confidence: ConfidenceHigh, Margin: PositiveInfinity,
				TopCandidates: topN(candidates, 3),
				Reason:        "common title matched by album hint",
			}, nil
		}
	}
	for _, c := range candidates {
		if c.ArtistMatch == ArtistMatchExact {
			return MatchResult{
				ArtistName: c.ArtistCredit, HasArtist: true,
				Confidence: ConfidenceMedium, Margin: 0,
				TopCandidates: topN(candidates, 3),
				Reason:        "common title matched by artist hint only",
			}, nil
		}
	}
	return MatchResult{Confidence: ConfidenceNoMatch, Reason: "common title: no album or exact artist match"}, nil
}

// resolveObscureArtist implements spec.md §4.C "Obscure artist": no HOT
// hits, only COLD. Requires exact artist token match when a hint exists;
// without a hint, returns the top COLD candidate at low confidence.
func resolveObscureArtist(candidates []Candidate, artistHintClean string) (MatchResult, error) {
	sortByWeight(candidates)

	if artistHintClean == "" {
		top := candidates[0]
		return MatchResult{
			ArtistName: top.ArtistCredit, HasArtist: true,
			Confidence: ConfidenceLow, Margin: 0,
			TopCandidates: topN(candidates, 3),
			Reason:        "obscure artist: COLD-only candidate, no hint",
		}, nil
	}

	for _, c := range candidates {
		if c.ArtistMatch == ArtistMatchExact {
			return MatchResult{
				ArtistName: c.ArtistCredit, HasArtist: true,
				Confidence: ConfidenceMedium, Margin: 0,
				TopCandidates: topN(candidates, 3),
				Reason:        "obscure artist: exact artist token match",
			}, nil
		}
	}
	return MatchResult{Confidence: ConfidenceNoMatch, Reason: "obscure artist: no exact artist token match"}, nil
}

func sortByWeight(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Weight > candidates[j].Weight })
}

func topN(candidates []Candidate, n int) []Candidate {
	if len(candidates) < n {
		n = len(candidates)
	}
	return append([]Candidate(nil), candidates[:n]...)
}

// selectWinner sorts by weight descending and applies the confidence rules
// from spec.md §4.C "Winner and confidence".
func selectWinner(candidates []Candidate, cfg *MatchingConfig, reason string) (MatchResult, error) {
	sortByWeight(candidates)

	top := candidates[0]

	if len(candidates) == 1 {
		return MatchResult{
			ArtistName: top.ArtistCredit, HasArtist: true,
			ReleaseName: top.ReleaseName, HasRelease: top.ReleaseName != "",
			Confidence: ConfidenceHigh, Margin: PositiveInfinity,
			TopCandidates: topN(candidates, 3),
			Reason:        reason + ": single candidate",
		}, nil
	}

	second := candidates[1]
	margin := top.Weight - second.Weight

	var confidence Confidence
	switch {
	case margin >= cfg.MinConfidenceMargin && top.Weight >= cfg.MinAbsoluteScore:
		confidence = ConfidenceHigh
	case top.ArtistMatch == ArtistMatchExact:
		confidence = ConfidenceMedium
	case cfg.Mode == ModeHighAccuracy:
		confidence = ConfidenceLow
	case top.Weight >= cfg.MinAbsoluteScore:
		confidence = ConfidenceLow
	default:
		confidence = ConfidenceNoMatch
	}

	if confidence == ConfidenceNoMatch {
		return MatchResult{
			Confidence:    ConfidenceNoMatch,
			Margin:        margin,
			TopCandidates: topN(candidates, 3),
			Reason:        reason + ": below absolute/margin thresholds",
		}, nil
	}

	return MatchResult{
		ArtistName: top.ArtistCredit, HasArtist: true,
		ReleaseName: top.ReleaseName, HasRelease: top.ReleaseName != "",
		Confidence: confidence, Margin: margin,
		TopCandidates: topN(candidates, 3),
		Reason:        reason,
	}, nil
}
