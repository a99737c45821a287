// Package orchestrator drives resolution over a stream of tracks using the
// Dispatcher, per spec.md §4.H: checkpointing, progress events, a bounded
// worker pool, and the idle→running→...→done|cancelled|failed state
// machine.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerveband/amp-resolver/dispatcher"
	"github.com/nerveband/amp-resolver/logging"
	"github.com/nerveband/amp-resolver/offlineresolver"
	"github.com/nerveband/amp-resolver/offlinestore"
	"github.com/nerveband/amp-resolver/onlineresolver"
	"github.com/nerveband/amp-resolver/sessionaligner"
	"github.com/nerveband/amp-resolver/textpipeline"
)

// maxNetworkRetries bounds the inline per-track network_error retry, spec.md
// §4.H "Retries".
const maxNetworkRetries = 3

// networkRetryBaseDelay is the exponential-backoff base between retries.
const networkRetryBaseDelay = 200 * time.Millisecond

// ErrNotIdle is returned when Run is called on an Orchestrator that isn't
// in the idle state (e.g. a second concurrent Run on the same instance).
var ErrNotIdle = errors.New("orchestrator: run already in progress")

// ProgressFunc receives one ProgressEvent per checkpoint_interval tracks.
type ProgressFunc func(ProgressEvent)

// FailedTrack is a permanently-failed track, distinct from the rate-limited
// bucket, spec.md §3 "permanently-failed tracks".
type FailedTrack struct {
	Index  int
	Track  dispatcher.Track
	Reason string
}

// Result is the Orchestrator's final output for one Run call.
type Result struct {
	RunID       string
	State       State
	Outcomes    []TrackOutcome // ordered by input Index
	Buckets     BucketCounts
	RateLimited []RateLimitedTrack
	Failed      []FailedTrack
}

// Option configures optional Orchestrator collaborators beyond the
// mandatory Dispatcher.
type Option func(*Orchestrator)

// WithPool wires the Online Resolver's worker pool so Cancel() trips its
// cancellation signal and RetryRateLimited can drain the rate-limited
// bucket, spec.md §4.D/§4.H.
func WithPool(pool *onlineresolver.Pool) Option {
	return func(o *Orchestrator) { o.pool = pool }
}

// WithSessionAligner wires the Offline Store and a resolver capable of a
// mandatory-hint re-resolve, enabling post-checkpoint session alignment
// per spec.md §4.F/§4.H "Session alignment is invoked after each
// checkpoint window".
func WithSessionAligner(store *offlinestore.Store, resolver sessionaligner.Resolver) Option {
	return func(o *Orchestrator) {
		o.store = store
		o.aligner = resolver
	}
}

// WithLogger overrides the Orchestrator's logger.
func WithLogger(logger logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// Orchestrator drives Dispatcher.Resolve over a track stream with a
// bounded worker pool, checkpointing, and pause/resume/cancel control.
type Orchestrator struct {
	dispatcher *dispatcher.Dispatcher
	pool       *onlineresolver.Pool
	store      *offlinestore.Store
	aligner    sessionaligner.Resolver
	logger     logging.Logger
	cfg        Config

	mu       sync.Mutex
	state    State
	paused   bool
	resumeCh chan struct{}
	cancelFn context.CancelFunc
}

// New constructs an Orchestrator in the idle state.
func New(d *dispatcher.Dispatcher, cfg Config, opts ...Option) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = DefaultCheckpointInterval
	}
	o := &Orchestrator{
		dispatcher: d,
		logger:     logging.Nop,
		cfg:        cfg,
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.Nop
	}
	return o
}

// State reports the run's current lifecycle stage.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Pause stops dispatching new work; in-flight workers complete their
// current track, spec.md §4.H state machine "running→paused".
func (o *Orchestrator) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateRunning {
		return
	}
	o.state = StatePaused
	o.paused = true
}

// Resume reopens dispatch, spec.md §4.H "paused→running".
func (o *Orchestrator) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StatePaused {
		return
	}
	o.state = StateRunning
	o.paused = false
	if o.resumeCh != nil {
		close(o.resumeCh)
		o.resumeCh = nil
	}
}

// Cancel trips the run's cancellation token: stops new dispatch, wakes any
// rate-limiter sleep (via context propagation into the Online Resolver),
// and trips the pool's own cancellation signal. Safe to call before Run or
// concurrently with it; Run's bounded join is the caller's responsibility
// via ShutdownDeadline.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	cancel := o.cancelFn
	wasPaused := o.paused
	resumeCh := o.resumeCh
	o.paused = false
	o.resumeCh = nil
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if o.pool != nil {
		o.pool.Cancel()
	}
	// A paused run's workers are blocked on resumeCh, not on ctx — wake
	// them so they observe the now-cancelled context and exit.
	if wasPaused && resumeCh != nil {
		close(resumeCh)
	}
}

type indexedTrack struct {
	Index int
	Track dispatcher.Track
}

// Run drives tracks through the Dispatcher with cfg.Workers concurrent
// workers, emitting onProgress every cfg.CheckpointInterval tracks and
// writing an atomic checkpoint file at cfg.CheckpointPath (if set). Output
// is reassembled by input index regardless of completion order, per
// spec.md §5 "Ordering guarantees".
func (o *Orchestrator) Run(ctx context.Context, tracks []dispatcher.Track, onProgress ProgressFunc) (*Result, error) {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return nil, ErrNotIdle
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.cancelFn = cancel
	o.state = StateRunning
	o.mu.Unlock()

	runID := NewRunID()
	total := len(tracks)
	outcomes := make([]TrackOutcome, total)

	var mu sync.Mutex // guards buckets, rateLimited, failed, processed, window bookkeeping
	var buckets BucketCounts
	var rateLimited []RateLimitedTrack
	var failed []FailedTrack
	processed := 0
	windowDone := make(map[int]int) // window start index -> count completed
	started := time.Now()

	jobs := make(chan indexedTrack)
	g, gctx := errgroup.WithContext(runCtx)

	for w := 0; w < o.cfg.Workers; w++ {
		g.Go(func() error {
			for job := range jobs {
				if err := o.waitWhilePaused(gctx); err != nil {
					outcomes[job.Index] = cancelledOutcome(job)
					o.finishOne(&mu, job, total, &processed, &buckets, nil, nil, onProgress, runID, started, outcomes, tracks)
					continue
				}

				outcome, rl, fl := o.processTrack(gctx, job)
				outcomes[job.Index] = outcome

				o.finishOne(&mu, job, total, &processed, &buckets, rl, fl, onProgress, runID, started, outcomes, tracks)
				if rl != nil {
					mu.Lock()
					rateLimited = append(rateLimited, *rl)
					mu.Unlock()
				}
				if fl != nil {
					mu.Lock()
					failed = append(failed, *fl)
					mu.Unlock()
				}

				o.maybeAlignWindow(gctx, job.Index, windowDone, &mu, outcomes, tracks)
			}
			return nil
		})
	}

	go func() {
		defer close(jobs)
		for i, t := range tracks {
			select {
			case jobs <- indexedTrack{Index: i, Track: t}:
			case <-gctx.Done():
				return
			}
		}
	}()

	_ = g.Wait() // worker goroutines never return a non-nil error

	o.mu.Lock()
	finalState := StateDone
	if runCtx.Err() != nil {
		finalState = StateCancelled
	}
	o.state = finalState
	o.cancelFn = nil
	o.mu.Unlock()

	writeCheckpoint(o.cfg.CheckpointPath, Checkpoint{
		RunID:          runID,
		ProcessedIndex: processed,
		Buckets:        buckets,
		RateLimited:    rateLimited,
	})

	return &Result{
		RunID:       runID,
		State:       finalState,
		Outcomes:    outcomes,
		Buckets:     buckets,
		RateLimited: rateLimited,
		Failed:      failed,
	}, nil
}

func cancelledOutcome(job indexedTrack) TrackOutcome {
	return TrackOutcome{Index: job.Index, Track: job.Track, Outcome: OutcomeCancelled, Reason: "cancelled"}
}

// waitWhilePaused blocks the calling worker while the run is paused,
// waking immediately on Resume or on context cancellation, spec.md §4.H
// "in-flight workers complete" / §5 "wakes any rate-limiter sleep" applies
// analogously to the dispatch gate.
func (o *Orchestrator) waitWhilePaused(ctx context.Context) error {
	for {
		o.mu.Lock()
		if !o.paused || o.state != StatePaused {
			o.mu.Unlock()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		}
		if o.resumeCh == nil {
			o.resumeCh = make(chan struct{})
		}
		ch := o.resumeCh
		o.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// processTrack resolves one track, retrying network_error inline up to
// maxNetworkRetries with exponential backoff, and classifies the terminal
// outcome into a bucket, spec.md §4.H "Retries" / §7.
func (o *Orchestrator) processTrack(ctx context.Context, job indexedTrack) (TrackOutcome, *RateLimitedTrack, *FailedTrack) {
	var res dispatcher.Resolution
	var err error

	for attempt := 0; attempt <= maxNetworkRetries; attempt++ {
		res, err = o.dispatcher.Resolve(ctx, job.Track)
		if err == nil || !errors.Is(err, onlineresolver.ErrNetwork) {
			break
		}
		if attempt == maxNetworkRetries {
			break
		}
		delay := networkRetryBaseDelay * time.Duration(1<<attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return cancelledOutcome(job), nil, nil
		}
	}

	if err != nil {
		switch {
		case errors.Is(err, onlineresolver.ErrRateLimited):
			rl := &RateLimitedTrack{
				Index: job.Index, Title: job.Track.Title, ArtistHint: job.Track.ArtistHint,
				AlbumHint: job.Track.AlbumHint, Reason: "403", AttemptedAt: time.Now().UTC().Format(time.RFC3339),
			}
			return TrackOutcome{Index: job.Index, Track: job.Track, Outcome: OutcomeRateLimited, Reason: "403"}, rl, nil

		case errors.Is(err, onlineresolver.ErrNetwork):
			fl := &FailedTrack{Index: job.Index, Track: job.Track, Reason: "network_error"}
			return TrackOutcome{Index: job.Index, Track: job.Track, Outcome: OutcomeFailed, Reason: "network_error"}, nil, fl

		case errors.Is(err, onlineresolver.ErrInvalid):
			fl := &FailedTrack{Index: job.Index, Track: job.Track, Reason: "invalid"}
			return TrackOutcome{Index: job.Index, Track: job.Track, Outcome: OutcomeFailed, Reason: "invalid"}, nil, fl

		default:
			reason := "resolver_unavailable: " + err.Error()
			fl := &FailedTrack{Index: job.Index, Track: job.Track, Reason: reason}
			return TrackOutcome{Index: job.Index, Track: job.Track, Outcome: OutcomeFailed, Reason: reason}, nil, fl
		}
	}

	if res.Confidence == offlineresolver.ConfidenceNoMatch {
		fl := &FailedTrack{Index: job.Index, Track: job.Track, Reason: "not_found"}
		return TrackOutcome{Index: job.Index, Track: job.Track, Resolution: res, Outcome: OutcomeFailed, Reason: "not_found"}, nil, fl
	}

	switch res.Provider {
	case dispatcher.SourceCache:
		return TrackOutcome{Index: job.Index, Track: job.Track, Resolution: res, Outcome: OutcomeCached, Reason: res.Reason}, nil, nil
	default:
		return TrackOutcome{Index: job.Index, Track: job.Track, Resolution: res, Outcome: OutcomeResolved, Reason: res.Reason}, nil, nil
	}
}

// finishOne updates shared counters, emits a progress event and writes a
// checkpoint at cfg.CheckpointInterval boundaries, per spec.md §4.H.
func (o *Orchestrator) finishOne(mu *sync.Mutex, job indexedTrack, total int, processed *int, buckets *BucketCounts, rl *RateLimitedTrack, fl *FailedTrack, onProgress ProgressFunc, runID string, started time.Time, outcomes []TrackOutcome, tracks []dispatcher.Track) {
	mu.Lock()
	*processed++
	switch outcomes[job.Index].Outcome {
	case OutcomeResolved:
		buckets.Resolved++
	case OutcomeCached:
		buckets.Cached++
	case OutcomeRateLimited:
		buckets.RateLimited++
	case OutcomeFailed:
		buckets.Failed++
	}
	n := *processed
	snapshot := *buckets
	mu.Unlock()

	if n%o.cfg.CheckpointInterval != 0 && n != total {
		return
	}

	elapsed := time.Since(started)
	var eta time.Duration
	if n > 0 {
		perTrack := elapsed / time.Duration(n)
		eta = perTrack * time.Duration(total-n)
	}

	if onProgress != nil {
		onProgress(ProgressEvent{ProcessedCount: n, TotalCount: total, Buckets: snapshot, ETA: eta})
	}

	if o.cfg.CheckpointPath != "" {
		if err := writeCheckpoint(o.cfg.CheckpointPath, Checkpoint{RunID: runID, ProcessedIndex: n, Buckets: snapshot}); err != nil {
			o.logger.Printf("orchestrator: checkpoint write failed (continuing): %v", err)
		}
	}
}

// maybeAlignWindow triggers session alignment once every checkpoint-sized
// window of input indices has a completed outcome, amortizing release
// lookups per spec.md §4.H "Session alignment is invoked after each
// checkpoint window, not per-track".
func (o *Orchestrator) maybeAlignWindow(ctx context.Context, index int, windowDone map[int]int, mu *sync.Mutex, outcomes []TrackOutcome, tracks []dispatcher.Track) {
	if o.store == nil || o.aligner == nil {
		return
	}
	interval := o.cfg.CheckpointInterval
	start := (index / interval) * interval
	end := start + interval
	if end > len(tracks) {
		end = len(tracks)
	}

	mu.Lock()
	windowDone[start]++
	done := windowDone[start] == end-start
	mu.Unlock()
	if !done {
		return
	}

	trackResults := make([]sessionaligner.TrackResult, 0, end-start)
	for i := start; i < end; i++ {
		trackResults = append(trackResults, sessionaligner.TrackResult{
			Title:      tracks[i].Title,
			AlbumHint:  tracks[i].AlbumHint,
			CleanAlbum: textpipeline.CleanConservative(tracks[i].AlbumHint),
			Result:     outcomes[i].Resolution.MatchResult,
		})
	}

	if err := sessionaligner.Align(ctx, o.store, o.aligner, trackResults); err != nil {
		o.logger.Printf("orchestrator: session alignment for window [%d,%d) failed: %v", start, end, err)
		return
	}

	for i, tr := range trackResults {
		outcomes[start+i].Resolution.MatchResult = tr.Result
	}
}

// RetryRateLimited drains rl through the Online Resolver's pool, respecting
// the current rate limiter, spec.md §4.D "retry(rate_limited_tracks)".
func (o *Orchestrator) RetryRateLimited(ctx context.Context, rl []RateLimitedTrack) ([]TrackOutcome, error) {
	if o.pool == nil {
		return nil, fmt.Errorf("orchestrator: retry_rate_limited requires an online resolver pool")
	}

	queries := make([]onlineresolver.Query, len(rl))
	for i, t := range rl {
		queries[i] = onlineresolver.Query{Index: i, Title: t.Title, Album: t.AlbumHint, ArtistHint: t.ArtistHint}
	}

	results := o.pool.Retry(ctx, queries)
	outcomes := make([]TrackOutcome, len(rl))
	for i, r := range results {
		track := dispatcher.Track{Title: rl[i].Title, ArtistHint: rl[i].ArtistHint, AlbumHint: rl[i].AlbumHint}
		idx := rl[i].Index
		if r.Err != nil {
			if errors.Is(r.Err, onlineresolver.ErrRateLimited) {
				outcomes[i] = TrackOutcome{Index: idx, Track: track, Outcome: OutcomeRateLimited, Reason: "403"}
			} else {
				outcomes[i] = TrackOutcome{Index: idx, Track: track, Outcome: OutcomeFailed, Reason: "retry failed: " + r.Err.Error()}
			}
			continue
		}
		outcomes[i] = TrackOutcome{
			Index: idx, Track: track, Outcome: OutcomeResolved,
			Reason: "retried online",
		}
	}
	return outcomes, nil
}
