package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nerveband/amp-resolver/dispatcher"
	"github.com/nerveband/amp-resolver/logging"
	"github.com/nerveband/amp-resolver/mappingcache"
)

func newTestDispatcher(t *testing.T) *dispatcher.Dispatcher {
	t.Helper()
	cache := mappingcache.Open("", logging.Nop)
	return dispatcher.New(cache, nil, nil, logging.Nop)
}

func tracksNamed(n int) []dispatcher.Track {
	tracks := make([]dispatcher.Track, n)
	for i := range tracks {
		tracks[i] = dispatcher.Track{Title: "Track"}
	}
	return tracks
}

func TestRunPreservesOutputOrder(t *testing.T) {
	o := New(newTestDispatcher(t), Config{Workers: 4, CheckpointInterval: 3})
	tracks := make([]dispatcher.Track, 20)
	for i := range tracks {
		tracks[i] = dispatcher.Track{Title: string(rune('A' + i))}
	}

	result, err := o.Run(context.Background(), tracks, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Outcomes) != len(tracks) {
		t.Fatalf("len(outcomes) = %d, want %d", len(result.Outcomes), len(tracks))
	}
	for i, outcome := range result.Outcomes {
		if outcome.Index != i {
			t.Errorf("outcomes[%d].Index = %d, want %d", i, outcome.Index, i)
		}
		if outcome.Track.Title != tracks[i].Title {
			t.Errorf("outcomes[%d].Track.Title = %q, want %q", i, outcome.Track.Title, tracks[i].Title)
		}
	}
}

func TestRunBucketsNoMatchAsFailed(t *testing.T) {
	o := New(newTestDispatcher(t), Config{Workers: 2, CheckpointInterval: 5})
	result, err := o.Run(context.Background(), tracksNamed(10), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Buckets.Failed != 10 {
		t.Errorf("Buckets.Failed = %d, want 10 (no resolvers configured -> no_match)", result.Buckets.Failed)
	}
	if len(result.Failed) != 10 {
		t.Errorf("len(Failed) = %d, want 10", len(result.Failed))
	}
	if result.State != StateDone {
		t.Errorf("State = %v, want done", result.State)
	}
}

func TestRunEmitsProgressEvents(t *testing.T) {
	o := New(newTestDispatcher(t), Config{Workers: 2, CheckpointInterval: 4})
	var mu sync.Mutex
	var events []ProgressEvent
	_, err := o.Run(context.Background(), tracksNamed(10), func(e ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// Checkpoints fire at 4, 8, and a final flush at 10 (the remainder).
	if len(events) < 2 {
		t.Fatalf("got %d progress events, want at least 2", len(events))
	}
	last := events[len(events)-1]
	if last.ProcessedCount != 10 {
		t.Errorf("final ProcessedCount = %d, want 10", last.ProcessedCount)
	}
	if last.TotalCount != 10 {
		t.Errorf("TotalCount = %d, want 10", last.TotalCount)
	}
}

func TestPauseBlocksDispatchUntilResumed(t *testing.T) {
	o := New(newTestDispatcher(t), Config{Workers: 1, CheckpointInterval: 2})
	o.mu.Lock()
	o.state = StateRunning
	o.mu.Unlock()
	o.Pause()
	if o.State() != StatePaused {
		t.Fatalf("State() after Pause() = %v, want paused", o.State())
	}

	done := make(chan struct{})
	go func() {
		o.Resume()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Resume() did not complete in time")
	}
	if o.State() != StateRunning {
		t.Errorf("State() after Resume() = %v, want running", o.State())
	}
}

func TestCancelStopsRunPromptly(t *testing.T) {
	o := New(newTestDispatcher(t), Config{Workers: 2, CheckpointInterval: 5})
	ctx, cancel := context.WithCancel(context.Background())

	resultCh := make(chan *Result, 1)
	go func() {
		r, _ := o.Run(ctx, tracksNamed(1000), nil)
		resultCh <- r
	}()

	cancel()

	select {
	case result := <-resultCh:
		if result.State != StateCancelled && result.State != StateDone {
			t.Errorf("State = %v, want cancelled or done", result.State)
		}
	case <-time.After(ShutdownDeadline):
		t.Fatal("Run did not return within ShutdownDeadline after cancel")
	}
}

func TestNewRunIDIsUnique(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	if a == b {
		t.Errorf("NewRunID() returned the same id twice: %q", a)
	}
}
