// Package sessionaligner implements spec.md §4.F: detecting runs of
// consecutive same-album tracks and rewriting their artist credit to the
// release's modal artist, without ever downgrading confidence.
package sessionaligner

import "github.com/nerveband/amp-resolver/offlineresolver"

// minSessionLength is the shortest run of consecutive same-album tracks
// that counts as a session, spec.md §4.F.
const minSessionLength = 3

// TrackResult pairs a track's input (title/album hint) with its already-
// resolved MatchResult, the unit the Aligner consumes and rewrites.
type TrackResult struct {
	Title      string
	AlbumHint  string
	CleanAlbum string
	Result     offlineresolver.MatchResult
}
