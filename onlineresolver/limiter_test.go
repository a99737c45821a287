package onlineresolver

import (
	"testing"
	"time"
)

func TestNewAdaptiveLimiterDefaultsToDiscoveryStart(t *testing.T) {
	l := NewAdaptiveLimiter(0)
	if l.CurrentRPM() != discoveryStartRPM {
		t.Errorf("CurrentRPM() = %v, want %v", l.CurrentRPM(), discoveryStartRPM)
	}
}

func TestNewAdaptiveLimiterHonorsConfiguredRPM(t *testing.T) {
	l := NewAdaptiveLimiter(20)
	if l.CurrentRPM() != 20 {
		t.Errorf("CurrentRPM() = %v, want 20", l.CurrentRPM())
	}
}

func TestRecordRateLimitedBacksOffMultiplicatively(t *testing.T) {
	l := NewAdaptiveLimiter(100)
	l.RecordRateLimited()
	if l.CurrentRPM() != 50 {
		t.Errorf("CurrentRPM() after one backoff = %v, want 50", l.CurrentRPM())
	}
}

func TestRecordRateLimitedNeverGoesBelowFloor(t *testing.T) {
	l := NewAdaptiveLimiter(6)
	for i := 0; i < 10; i++ {
		l.RecordRateLimited()
	}
	if l.CurrentRPM() < minRPM {
		t.Errorf("CurrentRPM() = %v, want >= %v", l.CurrentRPM(), minRPM)
	}
}

func TestRecordSuccessDoesNothingWithoutPriorRateHit(t *testing.T) {
	l := NewAdaptiveLimiter(20)
	l.RecordSuccess()
	if l.CurrentRPM() != 20 {
		t.Errorf("CurrentRPM() = %v, want unchanged 20 (no prior 403)", l.CurrentRPM())
	}
}

func TestRecordSuccessNeverExceedsCeiling(t *testing.T) {
	l := NewAdaptiveLimiter(10)
	if l.ceiling != 10 {
		t.Fatalf("ceiling = %v, want 10 (pinned to configured rpm)", l.ceiling)
	}

	l.RecordRateLimited() // 10 -> 5
	for i := 0; i < 3; i++ {
		l.mu.Lock()
		l.lastRateHit = time.Now().Add(-2 * cooldown)
		l.mu.Unlock()
		l.RecordSuccess()
	}
	if l.CurrentRPM() != 10 {
		t.Errorf("CurrentRPM() after repeated ramp-up = %v, want 10 (capped at ceiling)", l.CurrentRPM())
	}
}
