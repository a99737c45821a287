package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Checkpoint is the atomically-written run snapshot: processed count,
// bucket sizes, and the rate-limited list. The periodic checkpoints Run
// writes every CheckpointInterval tracks leave RateLimited empty; only the
// final checkpoint written when Run returns carries the rate-limited list,
// whichever provider is configured.
type Checkpoint struct {
	RunID          string             `json:"run_id"`
	ProcessedIndex int                `json:"processed_index"`
	Buckets        BucketCounts       `json:"buckets"`
	RateLimited    []RateLimitedTrack `json:"rate_limited,omitempty"`
}

// RateLimitedTrack is a checkpointed 403 outcome, spec.md §3 "Rate-limited
// track".
type RateLimitedTrack struct {
	Index       int    `json:"index"`
	Title       string `json:"title"`
	ArtistHint  string `json:"artist_hint,omitempty"`
	AlbumHint   string `json:"album_hint,omitempty"`
	Reason      string `json:"reason"`
	AttemptedAt string `json:"attempted_at"`
}

// NewRunID mints a run identifier, grounded on the pack's
// github.com/google/uuid convention for opaque run/checkpoint naming.
func NewRunID() string {
	return uuid.NewString()
}

// writeCheckpoint persists cp to path by writing to a sibling temp file and
// renaming over the destination, matching the teacher's lexgen write-then-
// rename pattern (cmd/lexgen/main.go) so a crash mid-write never leaves a
// half-written checkpoint behind.
func writeCheckpoint(path string, cp Checkpoint) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("checkpoint: creating directory: %w", err)
	}

	b, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshaling: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("checkpoint: writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("checkpoint: renaming into place: %w", err)
	}
	return nil
}

// readCheckpoint loads a previously-written checkpoint for resume, per
// spec.md §4.H "restartable" input contract.
func readCheckpoint(path string) (Checkpoint, error) {
	var cp Checkpoint
	b, err := os.ReadFile(path)
	if err != nil {
		return cp, fmt.Errorf("checkpoint: reading %s: %w", path, err)
	}
	if err := json.Unmarshal(b, &cp); err != nil {
		return cp, fmt.Errorf("checkpoint: unmarshaling %s: %w", path, err)
	}
	return cp, nil
}
