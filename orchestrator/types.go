// Package orchestrator drives resolution over a stream of tracks using the
// Dispatcher, per spec.md §4.H: checkpointing, progress events, a bounded
// worker pool, and the idle→running→...→done|cancelled|failed state
// machine.
package orchestrator

import (
	"time"

	"github.com/nerveband/amp-resolver/dispatcher"
)

// DefaultWorkers is the worker-pool width, spec.md §4.H.
const DefaultWorkers = 10

// DefaultCheckpointInterval is how many tracks elapse between progress
// events and checkpoint writes.
const DefaultCheckpointInterval = 50

// ShutdownDeadline bounds a cancel()'s graceful join, spec.md §4.H/§5.
const ShutdownDeadline = 5 * time.Second

// State is the Orchestrator run's lifecycle stage.
type State string

const (
	StateIdle       State = "idle"
	StateRunning    State = "running"
	StatePaused     State = "paused"
	StateFinalizing State = "finalizing"
	StateDone       State = "done"
	StateCancelled  State = "cancelled"
	StateFailed     State = "failed"
)

// Outcome classifies a single track's terminal bucket.
type Outcome string

const (
	OutcomeResolved     Outcome = "resolved"
	OutcomeCached       Outcome = "cached"
	OutcomeRateLimited  Outcome = "rate_limited"
	OutcomeFailed       Outcome = "failed"
	OutcomeCancelled    Outcome = "cancelled"
)

// TrackRecord is one input unit, carrying its original index for
// order-preserving reassembly.
type TrackRecord struct {
	Index int
	Track dispatcher.Track
}

// TrackOutcome is the Orchestrator's per-track result, bucketed by Outcome.
type TrackOutcome struct {
	Index      int
	Track      dispatcher.Track
	Resolution dispatcher.Resolution
	Outcome    Outcome
	Reason     string
}

// BucketCounts tallies per-bucket totals for progress reporting.
type BucketCounts struct {
	Resolved    int
	Cached      int
	RateLimited int
	Failed      int
}

// ProgressEvent is emitted every checkpoint_interval tracks.
type ProgressEvent struct {
	ProcessedCount int
	TotalCount     int
	Buckets        BucketCounts
	ETA            time.Duration
}

// Config holds the Orchestrator's tunables.
type Config struct {
	Workers            int
	CheckpointInterval int
	CheckpointPath     string
}

// DefaultConfig returns spec.md §4.H defaults.
func DefaultConfig() Config {
	return Config{
		Workers:            DefaultWorkers,
		CheckpointInterval: DefaultCheckpointInterval,
	}
}
