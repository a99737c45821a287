package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/nerveband/amp-resolver/logging"
	"github.com/nerveband/amp-resolver/mappingcache"
	"github.com/nerveband/amp-resolver/offlineresolver"
	"github.com/nerveband/amp-resolver/onlineresolver"
	"github.com/nerveband/amp-resolver/textpipeline"
)

// ErrRateLimited is surfaced when the Online Resolver hits a 403 during
// dispatch, so the Orchestrator can route the track to its rate-limited
// bucket instead of the failed bucket.
var ErrRateLimited = onlineresolver.ErrRateLimited

// Dispatcher wires the Mapping Cache, Offline Resolver, and Online Resolver
// together behind the single resolve(track) entry point.
type Dispatcher struct {
	cache   *mappingcache.Cache
	offline *offlineresolver.Resolver
	online  *onlineresolver.Client
	logger  logging.Logger

	cfg atomic.Pointer[Config]

	// escalateMu serializes the offline resolver's temporary mode swap: two
	// concurrent low-confidence resolves must not race each other's SetMode
	// calls, since Mode is shared state on the underlying Resolver.
	escalateMu sync.Mutex
}

// New constructs a Dispatcher. online may be nil when the configured
// provider never needs it (offline_only).
func New(cache *mappingcache.Cache, offline *offlineresolver.Resolver, online *onlineresolver.Client, logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Nop
	}
	d := &Dispatcher{cache: cache, offline: offline, online: online, logger: logger}
	cfg := DefaultConfig()
	d.cfg.Store(&cfg)
	return d
}

// SetConfig atomically replaces the active policy.
func (d *Dispatcher) SetConfig(cfg Config) {
	d.cfg.Store(&cfg)
}

// Resolve implements spec.md §4.G's six-step resolution procedure.
func (d *Dispatcher) Resolve(ctx context.Context, track Track) (Resolution, error) {
	cfg := d.cfg.Load()

	cleanTitle := textpipeline.CleanConservative(track.Title)
	cleanArtist := textpipeline.NormalizeForMatching(track.ArtistHint)
	cleanAlbum := textpipeline.CleanConservative(track.AlbumHint)

	key := mappingcache.Key{CleanTitle: cleanTitle, CleanArtistHint: cleanArtist, CleanAlbumHint: cleanAlbum}
	hash := mappingcache.TrackHash(cleanTitle, cleanAlbum, cleanArtist)

	if d.cache != nil {
		if entry, ok := d.cache.Lookup(key, hash); ok {
			confidence := offlineresolver.Confidence(entry.Confidence)
			if confidence == "" {
				// FromMatchResult stores no_match results with an empty confidence.
				confidence = offlineresolver.ConfidenceNoMatch
			}
			return Resolution{
				MatchResult: offlineresolver.MatchResult{
					ArtistName: entry.ArtistName, HasArtist: entry.ArtistName != "",
					ReleaseName: entry.ReleaseName, HasRelease: entry.ReleaseName != "",
					Confidence: confidence,
					Margin:     offlineresolver.PositiveInfinity,
					Reason:     "mapping cache hit",
				},
				Provider: SourceCache,
			}, nil
		}
	}

	var offlineResult *offlineresolver.MatchResult
	var onlineResult *offlineresolver.MatchResult

	switch cfg.Provider {
	case ProviderOfflineOnly:
		r, err := d.resolveOffline(ctx, track)
		if err != nil {
			return Resolution{}, err
		}
		offlineResult = &r

	case ProviderOnlineOnly:
		r, err := d.resolveOnline(ctx, track)
		if err != nil {
			return Resolution{}, err
		}
		onlineResult = &r

	case ProviderOnlineThenOffline:
		r, err := d.resolveOnline(ctx, track)
		if err != nil {
			return Resolution{}, err
		}
		onlineResult = &r
		if needsFallback(*onlineResult, cfg) {
			off, err := d.resolveOffline(ctx, track)
			if err != nil {
				return Resolution{}, err
			}
			offlineResult = &off
		}

	default: // ProviderOfflineThenOnline
		r, err := d.resolveOffline(ctx, track)
		if err != nil {
			return Resolution{}, err
		}
		offlineResult = &r

		if offlineResult.Confidence == offlineresolver.ConfidenceLow && d.offline != nil && d.offline.Mode() == offlineresolver.ModeNormal {
			// spec.md §4.C "Mode escalation": the only path that activates
			// fuzzy scoring (phonetic matching applies in both modes). A
			// normal-mode low-confidence result gets one re-run in
			// high-accuracy mode before falling back online.
			escalated, err := d.resolveOfflineHighAccuracy(ctx, track)
			if err != nil {
				return Resolution{}, err
			}
			offlineResult = &escalated
		}

		if needsFallback(*offlineResult, cfg) {
			on, err := d.resolveOnline(ctx, track)
			if errors.Is(err, onlineresolver.ErrRateLimited) {
				return Resolution{}, err
			}
			if err != nil && !errors.Is(err, onlineresolver.ErrNotFound) {
				d.logger.Printf("dispatcher: online fallback failed: %v", err)
			} else {
				onlineResult = &on
			}
		}
	}

	result, source := reconcile(offlineResult, onlineResult)

	if d.cache != nil {
		entry := mappingcache.FromMatchResult(result.ArtistName, result.ReleaseName, result.Confidence)
		// Store always updates the LRU; it persists to the SQLite layer
		// only when entry.Confidence qualifies (high/medium/manual), so
		// low/no_match naturally update the LRU without persisting —
		// unless persist_low_matches explicitly forces low through too.
		if cfg.PersistLowMatches {
			d.cache.StoreForced(key, hash, entry)
		} else {
			d.cache.Store(key, hash, entry)
		}
	}

	return Resolution{MatchResult: result, Provider: source}, nil
}

func (d *Dispatcher) resolveOffline(ctx context.Context, track Track) (offlineresolver.MatchResult, error) {
	if d.offline == nil {
		return offlineresolver.MatchResult{Confidence: offlineresolver.ConfidenceNoMatch, Reason: "offline resolver not configured"}, nil
	}
	return d.offline.Search(ctx, track.Title, track.ArtistHint, track.AlbumHint)
}

// resolveOfflineHighAccuracy re-runs the Offline Resolver with the mode
// escalated to ModeHighAccuracy, then restores normal mode, per spec.md
// §4.C "Mode escalation".
func (d *Dispatcher) resolveOfflineHighAccuracy(ctx context.Context, track Track) (offlineresolver.MatchResult, error) {
	d.escalateMu.Lock()
	defer d.escalateMu.Unlock()

	d.offline.SetMode(offlineresolver.ModeHighAccuracy)
	defer d.offline.SetMode(offlineresolver.ModeNormal)

	return d.offline.Search(ctx, track.Title, track.ArtistHint, track.AlbumHint)
}

func (d *Dispatcher) resolveOnline(ctx context.Context, track Track) (offlineresolver.MatchResult, error) {
	if d.online == nil {
		return offlineresolver.MatchResult{Confidence: offlineresolver.ConfidenceNoMatch, Reason: "online resolver not configured"}, nil
	}

	res, err := d.online.Search(ctx, track.Title, track.AlbumHint, track.ArtistHint)
	if err != nil {
		if errors.Is(err, onlineresolver.ErrNotFound) {
			return offlineresolver.MatchResult{Confidence: offlineresolver.ConfidenceNoMatch, Reason: "online: not found"}, nil
		}
		return offlineresolver.MatchResult{}, err
	}

	// The iTunes fallback carries no candidate-margin scoring: a successful
	// match is reported at medium confidence, never high, since there is no
	// runner-up to measure a margin against.
	return offlineresolver.MatchResult{
		ArtistName: res.ArtistName, HasArtist: res.ArtistName != "",
		Confidence: offlineresolver.ConfidenceMedium,
		Reason:     "online resolver match",
	}, nil
}

// needsFallback reports whether the primary result is weak enough, under
// the configured policy, to justify consulting the secondary resolver.
func needsFallback(result offlineresolver.MatchResult, cfg *Config) bool {
	if result.Confidence == offlineresolver.ConfidenceNoMatch {
		return true
	}
	return result.Confidence == offlineresolver.ConfidenceLow && cfg.FallbackOnLow
}

// reconcile implements spec.md §4.G step 4: offline high always wins;
// otherwise the higher-confidence result wins; ties broken by offline.
func reconcile(offline, online *offlineresolver.MatchResult) (offlineresolver.MatchResult, Source) {
	if offline == nil && online == nil {
		return offlineresolver.MatchResult{Confidence: offlineresolver.ConfidenceNoMatch, Reason: "no resolver configured"}, SourceOffline
	}
	if online == nil {
		return *offline, SourceOffline
	}
	if offline == nil {
		return *online, SourceOnline
	}

	if offline.Confidence == offlineresolver.ConfidenceHigh {
		return *offline, SourceOffline
	}

	if confidenceRank(online.Confidence) > confidenceRank(offline.Confidence) {
		return *online, SourceOnline
	}
	return *offline, SourceOffline
}

func confidenceRank(c offlineresolver.Confidence) int {
	switch c {
	case offlineresolver.ConfidenceHigh:
		return 3
	case offlineresolver.ConfidenceMedium:
		return 2
	case offlineresolver.ConfidenceLow:
		return 1
	default:
		return 0
	}
}
