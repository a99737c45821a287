package orchestrator

import (
	"path/filepath"
	"testing"
)

func TestWriteReadCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	want := Checkpoint{
		RunID:          "test-run",
		ProcessedIndex: 42,
		Buckets:        BucketCounts{Resolved: 10, Cached: 5, RateLimited: 2, Failed: 1},
		RateLimited: []RateLimitedTrack{
			{Index: 7, Title: "Song", Reason: "403", AttemptedAt: "2026-01-01T00:00:00Z"},
		},
	}

	if err := writeCheckpoint(path, want); err != nil {
		t.Fatalf("writeCheckpoint() error = %v", err)
	}

	got, err := readCheckpoint(path)
	if err != nil {
		t.Fatalf("readCheckpoint() error = %v", err)
	}
	if got.RunID != want.RunID || got.ProcessedIndex != want.ProcessedIndex {
		t.Errorf("readCheckpoint() = %+v, want %+v", got, want)
	}
	if got.Buckets != want.Buckets {
		t.Errorf("Buckets = %+v, want %+v", got.Buckets, want.Buckets)
	}
	if len(got.RateLimited) != 1 || got.RateLimited[0].Index != 7 {
		t.Errorf("RateLimited = %+v, want one entry with Index=7", got.RateLimited)
	}
}

func TestWriteCheckpointNoopWhenPathEmpty(t *testing.T) {
	if err := writeCheckpoint("", Checkpoint{}); err != nil {
		t.Errorf("writeCheckpoint(\"\", ...) error = %v, want nil", err)
	}
}

func TestWriteCheckpointCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "run.json")
	if err := writeCheckpoint(path, Checkpoint{RunID: "x"}); err != nil {
		t.Fatalf("writeCheckpoint() error = %v", err)
	}
	if _, err := readCheckpoint(path); err != nil {
		t.Fatalf("readCheckpoint() after nested write error = %v", err)
	}
}
