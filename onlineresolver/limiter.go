package onlineresolver

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRPM is the conservative configured default, spec.md §4.D.
	DefaultRPM = 20.0
	// discoveryStartRPM is the adaptive-discovery starting point: absent an
	// explicit user override, the limiter probes aggressively and backs off
	// on 403s until it settles on a safe rate.
	discoveryStartRPM = 120.0
	// minRPM is the backoff floor; the limiter never throttles harder.
	minRPM = 5.0
	// maxRPM is the user-configurable ceiling spec.md §4.D allows.
	maxRPM = 120.0
	// backoffFactor multiplicatively shrinks rpm on each 403 observation.
	backoffFactor = 0.5
	// rampStep additively grows rpm after a cooldown with no 403s.
	rampStep = 5.0
	// cooldown is how long a worker must go without a 403 before ramping up.
	cooldown = 30 * time.Second
)

// AdaptiveLimiter wraps a token-bucket rate.Limiter whose effective
// requests-per-minute shrinks multiplicatively on a 403 and grows
// additively after a cooldown without one, per spec.md §4.D "Adaptive
// discovery". Wait is interruptible via ctx, satisfying the Orchestrator's
// pause/stop/cancel contract directly through context cancellation.
type AdaptiveLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	rpm     float64
	// ceiling bounds RecordSuccess ramp-up. Defaults to maxRPM; pinned to
	// the user's explicit configuredRPM whenever one is set (including a
	// value above maxRPM), so discovery never ramps past a rate the user
	// deliberately chose.
	ceiling     float64
	lastRateHit time.Time
}

// NewAdaptiveLimiter starts at discoveryStartRPM unless configuredRPM is
// positive (a user override or a previously discovered limit), in which
// case it starts there and caps ramp-up at that value instead of maxRPM.
func NewAdaptiveLimiter(configuredRPM int) *AdaptiveLimiter {
	rpm := discoveryStartRPM
	ceiling := maxRPM
	if configuredRPM > 0 {
		rpm = float64(configuredRPM)
		ceiling = rpm
	}
	return &AdaptiveLimiter{
		limiter: rate.NewLimiter(rate.Limit(rpm/60.0), int(rpm)),
		rpm:     rpm,
		ceiling: ceiling,
	}
}

// Wait blocks until a request may be issued, or ctx is cancelled.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	a.mu.Lock()
	limiter := a.limiter
	a.mu.Unlock()
	return limiter.Wait(ctx)
}

// RecordRateLimited backs the rpm off multiplicatively in response to an
// observed 403. Discovered limits persist via CurrentRPM for the caller to
// write back into settings.
func (a *AdaptiveLimiter) RecordRateLimited() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.lastRateHit = time.Now()
	a.rpm = a.rpm * backoffFactor
	if a.rpm < minRPM {
		a.rpm = minRPM
	}
	a.limiter.SetLimit(rate.Limit(a.rpm / 60.0))
	a.limiter.SetBurst(int(a.rpm))
}

// RecordSuccess ramps rpm back up additively once cooldown has elapsed
// since the last 403, capped at maxRPM (or the user-configured ceiling).
func (a *AdaptiveLimiter) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.lastRateHit.IsZero() || time.Since(a.lastRateHit) < cooldown {
		return
	}
	a.rpm += rampStep
	if a.rpm > a.ceiling {
		a.rpm = a.ceiling
	}
	a.lastRateHit = time.Time{}
	a.limiter.SetLimit(rate.Limit(a.rpm / 60.0))
	a.limiter.SetBurst(int(a.rpm))
}

// CurrentRPM reports the limiter's current effective rate, for persistence
// into settings.json per spec.md §4.D "Discovered limit persists in
// settings".
func (a *AdaptiveLimiter) CurrentRPM() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rpm
}
