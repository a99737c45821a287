// Package mappingcache implements the two-layer cache of spec.md §4.E: a
// bounded in-memory LRU keyed by the cleaned query triple, and a SQLite
// persistent store of verified mappings keyed by a stable track hash.
package mappingcache

import (
	"errors"
	"time"

	"github.com/nerveband/amp-resolver/offlineresolver"
)

// Capacity is the in-memory LRU's bound, spec.md §4.E.
const Capacity = 50_000

// Confidence mirrors offlineresolver.Confidence plus the "manual" override
// level the persistent store recognizes but the offline resolver never
// produces on its own.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceManual Confidence = "manual"
	// ConfidenceLow is never persisted by default — the storage invariant
	// admits it only when the Dispatcher's persist_low_matches policy
	// explicitly forces it (Cache.StoreForced).
	ConfidenceLow Confidence = "low"
)

// ErrNotPersistable is returned by the persistent store's store method when
// the confidence doesn't meet the persistence invariant (rows exist only
// for high/medium/manual); Cache.Store treats it as a normal skip.
var ErrNotPersistable = errors.New("mappingcache: confidence not eligible for persistence")

// Entry is a cached resolution, either in-memory (ephemeral) or persisted.
type Entry struct {
	ArtistName string
	ReleaseName string
	Confidence  Confidence
	Manual      bool
	LastUsedAt  time.Time
}

// FromMatchResult converts an offline/online MatchResult into a cache
// Entry, classifying confidence for the persistence-eligibility check.
func FromMatchResult(artist, release string, confidence offlineresolver.Confidence) Entry {
	var c Confidence
	switch confidence {
	case offlineresolver.ConfidenceHigh:
		c = ConfidenceHigh
	case offlineresolver.ConfidenceMedium:
		c = ConfidenceMedium
	case offlineresolver.ConfidenceLow:
		c = ConfidenceLow
	}
	return Entry{ArtistName: artist, ReleaseName: release, Confidence: c}
}

// Key identifies a cache slot: the cleaned title plus optional cleaned
// artist/album hints, spec.md §4.E "(clean_title, clean_artist_hint_or_empty,
// clean_album_hint_or_empty)".
type Key struct {
	CleanTitle      string
	CleanArtistHint string
	CleanAlbumHint  string
}
