package sessionaligner

import (
	"context"

	"github.com/nerveband/amp-resolver/offlineresolver"
	"github.com/nerveband/amp-resolver/offlinestore"
)

// Align detects sessions in tracks, queries the modal artist for each, and
// re-resolves every track in the session whose current result is not
// no_match (no_match tracks are skipped) with that artist forced as a
// mandatory hint. It mutates tracks in place, rewriting only ArtistName —
// never confidence — and only when the re-resolved credit matches the
// modal artist at medium confidence or higher (spec.md §4.F).
func Align(ctx context.Context, store *offlinestore.Store, resolver Resolver, tracks []TrackResult) error {
	for _, sess := range DetectSessions(tracks) {
		modal, err := ModalArtist(ctx, store, sess.CleanAlbum)
		if err != nil {
			return err
		}
		if modal == "" {
			continue
		}

		for i := sess.Start; i < sess.End; i++ {
			track := &tracks[i]
			if track.Result.Confidence == offlineresolver.ConfidenceNoMatch {
				continue
			}

			rewritten, err := resolver.Search(ctx, track.Title, modal, track.AlbumHint)
			if err != nil {
				return err
			}

			if !confidenceAtLeastMedium(rewritten.Confidence) {
				continue
			}
			if rewritten.ArtistName != modal {
				continue
			}

			track.Result.ArtistName = modal
			track.Result.HasArtist = true
		}
	}
	return nil
}

func confidenceAtLeastMedium(c offlineresolver.Confidence) bool {
	return c == offlineresolver.ConfidenceHigh || c == offlineresolver.ConfidenceMedium
}
