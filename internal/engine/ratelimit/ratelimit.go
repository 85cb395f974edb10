// Package ratelimit coordinates backoff across a chunk's retry attempts
// when a host starts returning 429 Too Many Requests. It is consulted
// by the worker pool's retry loop so retries from
// every chunk hitting the same host pause together instead of hammering
// it in lockstep.
package ratelimit

import (
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rangepull/rangepull/internal/utils"
)

// Limiter tracks rate-limit state for one host.
type Limiter struct {
	Host string

	blockedUntil    atomic.Int64
	consecutiveHits atomic.Int32
	mu              sync.Mutex
}

// New returns a Limiter for host, initially unblocked.
func New(host string) *Limiter {
	return &Limiter{Host: host}
}

// Handle429 updates the limiter from a 429 response and returns the
// duration workers should wait before retrying, honoring Retry-After
// when present and falling back to capped exponential backoff with
// ±10% jitter otherwise.
func (l *Limiter) Handle429(resp *http.Response) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.consecutiveHits.Add(1)
	wait := retryAfterDuration(resp)
	if wait == 0 {
		wait = backoffDuration(hits)
	}
	wait = addJitter(wait, 0.10)

	l.setBlockedUntil(wait)
	utils.Debug("ratelimit[%s]: blocking %v (hit #%d)", l.Host, wait, hits)
	return wait
}

func retryAfterDuration(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(retryAfter); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
		return time.Second
	}
	return 0
}

func backoffDuration(hits int32) time.Duration {
	multiplier := int64(1) << min(int(hits-1), 6) // 2^6 = 64s, clamped to maxWait
	wait := time.Duration(multiplier) * time.Second
	const maxWait = 60 * time.Second
	if wait > maxWait {
		wait = maxWait
	}
	return wait
}

func addJitter(d time.Duration, factor float64) time.Duration {
	if d <= 0 {
		return d
	}
	jitter := (rand.Float64()*2 - 1) * factor
	return time.Duration(float64(d) * (1 + jitter))
}

func (l *Limiter) setBlockedUntil(d time.Duration) {
	target := time.Now().Add(d).UnixNano()
	for {
		current := l.blockedUntil.Load()
		if target <= current {
			return
		}
		if l.blockedUntil.CompareAndSwap(current, target) {
			return
		}
	}
}

// WaitIfBlocked blocks until any active rate-limit window expires. It
// returns true if it waited.
func (l *Limiter) WaitIfBlocked() bool {
	blockedUntil := l.blockedUntil.Load()
	if blockedUntil == 0 {
		return false
	}
	wait := time.Until(time.Unix(0, blockedUntil))
	if wait <= 0 {
		return false
	}
	time.Sleep(wait)
	return true
}

// ReportSuccess clears the consecutive-hit counter after a chunk
// attempt succeeds.
func (l *Limiter) ReportSuccess() {
	l.consecutiveHits.Store(0)
}

// IsBlocked reports whether the host is currently within a rate-limit
// window.
func (l *Limiter) IsBlocked() bool {
	blockedUntil := l.blockedUntil.Load()
	return blockedUntil != 0 && time.Now().UnixNano() < blockedUntil
}
