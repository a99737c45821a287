// Package dispatcher implements spec.md §4.G: the single resolve(track)
// entry point that consults the Mapping Cache, runs the Offline and Online
// resolvers per the configured provider policy, and reconciles conflicts.
package dispatcher

import "github.com/nerveband/amp-resolver/offlineresolver"

// Provider selects which resolver(s) the Dispatcher consults and in what
// order, spec.md §4.G "Configuration options".
type Provider string

const (
	ProviderOfflineOnly     Provider = "offline_only"
	ProviderOnlineOnly      Provider = "online_only"
	ProviderOfflineThenOnline Provider = "offline_then_online"
	ProviderOnlineThenOffline Provider = "online_then_offline"
)

// Source identifies which layer produced a MatchResult: the cache, the
// offline resolver, or the online resolver.
type Source string

const (
	SourceCache  Source = "cache"
	SourceOffline Source = "offline"
	SourceOnline Source = "online"
)

// Track is a single query unit entering the Dispatcher, spec.md §4 "Track
// query".
type Track struct {
	Title      string
	ArtistHint string
	AlbumHint  string
	DurationMs int
}

// Config holds the Dispatcher's enumerated policy knobs.
type Config struct {
	Provider             Provider
	AlbumHintBoostInSQL  bool
	FallbackOnLow        bool
	PersistLowMatches    bool
}

// DefaultConfig returns the spec.md §4.G defaults.
func DefaultConfig() Config {
	return Config{
		Provider:            ProviderOfflineThenOnline,
		AlbumHintBoostInSQL: true,
		FallbackOnLow:       false,
		PersistLowMatches:   false,
	}
}

// Resolution is the Dispatcher's output: a MatchResult annotated with which
// layer produced it.
type Resolution struct {
	offlineresolver.MatchResult
	Provider Source
}
