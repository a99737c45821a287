package sessionaligner

import (
	"context"
	"fmt"

	"github.com/nerveband/amp-resolver/offlineresolver"
	"github.com/nerveband/amp-resolver/offlinestore"
)

// Resolver is the subset of offlineresolver.Resolver the Aligner needs: a
// re-resolution call forcing a mandatory artist hint.
type Resolver interface {
	Search(ctx context.Context, title, artistHint, albumHint string) (offlineresolver.MatchResult, error)
}

// Session is a contiguous run of same-album tracks, identified by index
// range into the caller's track slice.
type Session struct {
	Start, End int // End exclusive
	CleanAlbum string
}

// DetectSessions scans tracks in order and returns every maximal run of
// length >= minSessionLength sharing a non-empty CleanAlbum.
func DetectSessions(tracks []TrackResult) []Session {
	var sessions []Session
	i := 0
	for i < len(tracks) {
		if tracks[i].CleanAlbum == "" {
			i++
			continue
		}
		j := i + 1
		for j < len(tracks) && tracks[j].CleanAlbum == tracks[i].CleanAlbum {
			j++
		}
		if j-i >= minSessionLength {
			sessions = append(sessions, Session{Start: i, End: j, CleanAlbum: tracks[i].CleanAlbum})
		}
		i = j
	}
	return sessions
}

// ModalArtist queries the Offline Store for every recording on cleanAlbum
// and returns the most frequent artist_credit_name, spec.md §4.F.
func ModalArtist(ctx context.Context, store *offlinestore.Store, cleanAlbum string) (string, error) {
	rows, err := store.RecordingsByReleaseClean(ctx, cleanAlbum)
	if err != nil {
		return "", fmt.Errorf("session aligner: querying release %q: %w", cleanAlbum, err)
	}
	if len(rows) == 0 {
		return "", nil
	}

	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.ArtistCreditName]++
	}

	var modal string
	best := 0
	for artist, count := range counts {
		if count > best {
			best = count
			modal = artist
		}
	}
	return modal, nil
}
