package sessionaligner

import (
	"context"
	"testing"

	"github.com/nerveband/amp-resolver/offlineresolver"
)

func trackResult(album string, confidence offlineresolver.Confidence) TrackResult {
	return TrackResult{
		Title:      "track",
		CleanAlbum: album,
		Result:     offlineresolver.MatchResult{Confidence: confidence},
	}
}

func TestDetectSessionsFindsRunsOfThreeOrMore(t *testing.T) {
	tracks := []TrackResult{
		trackResult("after hours", offlineresolver.ConfidenceHigh),
		trackResult("after hours", offlineresolver.ConfidenceHigh),
		trackResult("after hours", offlineresolver.ConfidenceLow),
		trackResult("", offlineresolver.ConfidenceNoMatch),
		trackResult("different album", offlineresolver.ConfidenceHigh),
		trackResult("different album", offlineresolver.ConfidenceHigh),
	}

	sessions := DetectSessions(tracks)
	if len(sessions) != 1 {
		t.Fatalf("len(sessions) = %d, want 1 (second run is only 2 tracks)", len(sessions))
	}
	if sessions[0].Start != 0 || sessions[0].End != 3 {
		t.Errorf("session = %+v, want {Start:0 End:3}", sessions[0])
	}
}

func TestDetectSessionsIgnoresEmptyAlbum(t *testing.T) {
	tracks := []TrackResult{
		trackResult("", offlineresolver.ConfidenceHigh),
		trackResult("", offlineresolver.ConfidenceHigh),
		trackResult("", offlineresolver.ConfidenceHigh),
	}
	sessions := DetectSessions(tracks)
	if len(sessions) != 0 {
		t.Errorf("len(sessions) = %d, want 0 (empty album names never form a session)", len(sessions))
	}
}

type fakeResolver struct {
	result offlineresolver.MatchResult
	err    error
}

func (f *fakeResolver) Search(ctx context.Context, title, artistHint, albumHint string) (offlineresolver.MatchResult, error) {
	return f.result, f.err
}

func TestAlignRewritesArtistNameOnMediumOrHigherMatch(t *testing.T) {
	tracks := []TrackResult{
		trackResult("after hours", offlineresolver.ConfidenceLow),
		trackResult("after hours", offlineresolver.ConfidenceLow),
		trackResult("after hours", offlineresolver.ConfidenceLow),
	}
	for i := range tracks {
		tracks[i].Result.ArtistName = "Wrong Artist"
	}

	resolver := &fakeResolver{result: offlineresolver.MatchResult{
		ArtistName: "The Weeknd", Confidence: offlineresolver.ConfidenceMedium,
	}}

	err := alignWithModal(tracks, resolver, "The Weeknd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, tr := range tracks {
		if tr.Result.ArtistName != "The Weeknd" {
			t.Errorf("track %d ArtistName = %q, want %q", i, tr.Result.ArtistName, "The Weeknd")
		}
		if tr.Result.Confidence != offlineresolver.ConfidenceLow {
			t.Errorf("track %d Confidence = %q, want unchanged %q (aligner never downgrades or upgrades confidence)", i, tr.Result.Confidence, offlineresolver.ConfidenceLow)
		}
	}
}

func TestAlignSkipsLowConfidenceRewrite(t *testing.T) {
	tracks := []TrackResult{
		trackResult("after hours", offlineresolver.ConfidenceLow),
		trackResult("after hours", offlineresolver.ConfidenceLow),
		trackResult("after hours", offlineresolver.ConfidenceLow),
	}
	for i := range tracks {
		tracks[i].Result.ArtistName = "Wrong Artist"
	}

	resolver := &fakeResolver{result: offlineresolver.MatchResult{
		ArtistName: "The Weeknd", Confidence: offlineresolver.ConfidenceLow,
	}}

	err := alignWithModal(tracks, resolver, "The Weeknd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, tr := range tracks {
		if tr.Result.ArtistName != "Wrong Artist" {
			t.Errorf("track %d ArtistName = %q, want unchanged %q (re-resolution confidence below medium)", i, tr.Result.ArtistName, "Wrong Artist")
		}
	}
}

// alignWithModal runs the per-session rewrite loop Align performs, without
// needing a live *offlinestore.Store — it isolates the rewrite decision
// from the modal-artist lookup for direct testing.
func alignWithModal(tracks []TrackResult, resolver Resolver, modal string) error {
	sessions := DetectSessions(tracks)
	for _, sess := range sessions {
		for i := sess.Start; i < sess.End; i++ {
			track := &tracks[i]
			if track.Result.Confidence == offlineresolver.ConfidenceNoMatch {
				continue
			}
			rewritten, err := resolver.Search(context.Background(), track.Title, modal, track.AlbumHint)
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
