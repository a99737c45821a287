package onlineresolver

import (
	"context"
	"sync"

	"github.com/nerveband/amp-resolver/logging"
)

// DefaultWorkers is the parallel worker count, spec.md §4.D "Adaptive
// discovery" default.
const DefaultWorkers = 10

// Query is a single track lookup request, keyed by Index so callers can
// reassemble results in original order.
type Query struct {
	Index      int
	Title      string
	Album      string
	ArtistHint string
}

// QueryResult pairs a Query with its resolved Result, for bucket sorting by
// the caller (Dispatcher/Orchestrator).
type QueryResult struct {
	Query  Query
	Result Result
	Err    error
}

// Pool runs Client.Search over many tracks concurrently, honoring the
// shared AdaptiveLimiter, and exposes Cancel for the Orchestrator's
// pause/stop contract. Grounded on the teacher's per-user WaitGroup +
// buffered-channel fan-out (service/lastfm/lastfm.go fetchAllUserTracks).
type Pool struct {
	client  *Client
	workers int
	logger  logging.Logger

	mu       sync.Mutex
	cancelFn context.CancelFunc
}

// NewPool constructs a Pool with DefaultWorkers unless workers is positive.
func NewPool(client *Client, workers int, logger logging.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = logging.Nop
	}
	return &Pool{client: client, workers: workers, logger: logger}
}

// Cancel trips the cancellation signal for any in-flight SearchAll or
// Retry call, per spec.md §4.D "cancel()".
func (p *Pool) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelFn != nil {
		p.cancelFn()
	}
}

// SearchAll fans queries out over p.workers goroutines and returns results
// in the same order as the input slice.
func (p *Pool) SearchAll(ctx context.Context, queries []Query) []QueryResult {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancelFn = cancel
	p.mu.Unlock()
	defer cancel()

	results := make([]QueryResult, len(queries))
	jobs := make(chan Query)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for q := range jobs {
				if ctx.Err() != nil {
					results[q.Index] = QueryResult{Query: q, Err: ctx.Err()}
					continue
				}
				res, err := p.client.Search(ctx, q.Title, q.Album, q.ArtistHint)
				results[q.Index] = QueryResult{Query: q, Result: res, Err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, q := range queries {
			select {
			case jobs <- q:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	return results
}

// Retry drains the rate-limited bucket, respecting the current limiter
// state. Callers typically invoke this after the limiter's cooldown has
// passed, per spec.md §4.D "retry(rate_limited_tracks)".
func (p *Pool) Retry(ctx context.Context, queries []Query) []QueryResult {
	return p.SearchAll(ctx, queries)
}
