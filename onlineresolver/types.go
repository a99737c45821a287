// Package onlineresolver wraps the Apple Music iTunes Search API fallback
// described in spec.md §4.D: a single HTTP endpoint, an adaptive rate
// limiter, and a per-track error taxonomy the Dispatcher and Orchestrator
// branch on.
package onlineresolver

import "errors"

// Outcome classifies a single track's search attempt.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeNotFound     Outcome = "not_found"
	OutcomeRateLimited  Outcome = "rate_limited"
	OutcomeNetworkError Outcome = "network_error"
	OutcomeInvalid      Outcome = "invalid"
)

// Result is the Online Resolver's per-track outcome.
type Result struct {
	Outcome    Outcome
	ArtistName string
}

// ErrRateLimited signals a 403 response: retriable, routed to the
// rate-limited bucket rather than the failed bucket.
var ErrRateLimited = errors.New("onlineresolver: rate limited (403)")

// ErrNotFound signals a permanent empty-result outcome.
var ErrNotFound = errors.New("onlineresolver: no candidate found")

// ErrNetwork signals a retriable transport failure (timeout, DNS, 5xx).
var ErrNetwork = errors.New("onlineresolver: network error")

// ErrInvalid signals a permanent malformed-response failure.
var ErrInvalid = errors.New("onlineresolver: invalid response")
