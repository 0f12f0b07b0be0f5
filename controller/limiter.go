package controller

import (
	"sync"
	"sync/atomic"
	"time"

	verr "vpnse/errors"
	"vpnse/settings"
)

// retryState is the per-endpoint retry bookkeeping the limiter keeps.
type retryState struct {
	failures    int
	lastFailure time.Time
}

// Limiter is the shareable connection/rate/retry limiter (spec.md §3/§4.6):
// an atomic active-connection counter plus two mutex-protected maps. Safe
// for concurrent use by multiple Controllers.
type Limiter struct {
	activeCount atomic.Int64

	mu       sync.Mutex
	attempts []time.Time
	retries  map[string]retryState
}

func NewLimiter() *Limiter {
	return &Limiter{retries: make(map[string]retryState)}
}

// Admit runs the full connect-time check sequence from spec.md §4.6 steps
// 1–3: concurrency ceiling, then attempt-rate window, then retry cooldown.
// It records the attempt timestamp as a side effect of a passing rate
// check, matching the reference's "append now" on success.
func (l *Limiter) Admit(endpointKey string, limits settings.ConnectionLimits) error {
	if limits.MaxConcurrent > 0 {
		active := l.activeCount.Load()
		if active >= int64(limits.MaxConcurrent) {
			return verr.New(verr.ConnectionLimitReached, "maximum concurrent connections reached: %d/%d", active, limits.MaxConcurrent)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limits.RateLimitRPS > 0 {
		now := time.Now()
		cutoff := now.Add(-60 * time.Second)
		kept := l.attempts[:0]
		for _, t := range l.attempts {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		l.attempts = kept

		if len(l.attempts) >= limits.RateLimitRPS {
			return verr.New(verr.RateLimitExceeded, "too many connection attempts: %d/%d per minute", len(l.attempts), limits.RateLimitRPS)
		}
		l.attempts = append(l.attempts, now)
	}

	if limits.MaxRetries > 0 {
		state, ok := l.retries[endpointKey]
		if ok && state.failures >= limits.MaxRetries {
			cooldown := time.Duration(limits.RetryDelay) * time.Second * time.Duration(state.failures-limits.MaxRetries+1)
			elapsed := time.Since(state.lastFailure)
			if elapsed < cooldown {
				return verr.New(verr.RetryLimitExceeded, "too many retry attempts for %s: %d/%d, wait %s", endpointKey, state.failures, limits.MaxRetries, (cooldown - elapsed).Truncate(time.Second))
			}
			l.retries[endpointKey] = retryState{failures: 0, lastFailure: time.Now()}
		}
	}

	return nil
}

// RecordConnection increments the active-connection count on a successful
// connect.
func (l *Limiter) RecordConnection() { l.activeCount.Add(1) }

// RecordDisconnection decrements the active-connection count on disconnect.
func (l *Limiter) RecordDisconnection() { l.activeCount.Add(-1) }

// RecordRetry increments the failure count for endpointKey after a failed
// connect attempt.
func (l *Limiter) RecordRetry(endpointKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	state := l.retries[endpointKey]
	state.failures++
	state.lastFailure = time.Now()
	l.retries[endpointKey] = state
}

// ActiveCount reports the current number of connected/tunneling sessions
// sharing this limiter.
func (l *Limiter) ActiveCount() int64 { return l.activeCount.Load() }
