package ratelimit

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withinJitter asserts got is within +/-factor of want, matching
// Handle429's +/-10% jitter on top of Retry-After/backoff durations.
func withinJitter(t *testing.T, want, got time.Duration, factor float64) {
	t.Helper()
	lo := time.Duration(float64(want) * (1 - factor))
	hi := time.Duration(float64(want) * (1 + factor))
	assert.True(t, got >= lo && got <= hi, "got %v, want within %.0f%% of %v", got, factor*100, want)
}

func TestLimiter_Handle429_RetryAfterSeconds(t *testing.T) {
	l := New("example.com")
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"5"}}}

	wait := l.Handle429(resp)
	withinJitter(t, 5*time.Second, wait, 0.15)
	assert.True(t, l.IsBlocked())
}

func TestLimiter_Handle429_RetryAfterHTTPDate(t *testing.T) {
	l := New("example.com")
	future := time.Now().UTC().Add(3 * time.Second)
	resp := &http.Response{Header: http.Header{"Retry-After": []string{future.Format(http.TimeFormat)}}}

	wait := l.Handle429(resp)
	assert.True(t, wait > time.Second && wait < 5*time.Second, "got %v", wait)
}

func TestLimiter_Handle429_ExponentialBackoffWithoutRetryAfter(t *testing.T) {
	l := New("example.com")
	resp := &http.Response{Header: http.Header{}}

	wait1 := l.Handle429(resp)
	withinJitter(t, 1*time.Second, wait1, 0.15)

	wait2 := l.Handle429(resp)
	withinJitter(t, 2*time.Second, wait2, 0.15)

	wait3 := l.Handle429(resp)
	withinJitter(t, 4*time.Second, wait3, 0.15)
}

func TestLimiter_ReportSuccess_ResetsBackoff(t *testing.T) {
	l := New("example.com")
	resp := &http.Response{Header: http.Header{}}

	l.Handle429(resp)
	l.Handle429(resp)
	l.ReportSuccess()

	wait := l.Handle429(resp)
	withinJitter(t, 1*time.Second, wait, 0.15)
}

func TestLimiter_WaitIfBlocked_NotBlocked(t *testing.T) {
	l := New("example.com")

	start := time.Now()
	waited := l.WaitIfBlocked()
	elapsed := time.Since(start)

	assert.False(t, waited)
	assert.Less(t, elapsed, 50*time.Millisecond)
}

func TestLimiter_WaitIfBlocked_Blocked(t *testing.T) {
	l := New("example.com")
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"1"}}}
	l.Handle429(resp)

	start := time.Now()
	waited := l.WaitIfBlocked()
	elapsed := time.Since(start)

	assert.True(t, waited)
	assert.GreaterOrEqual(t, elapsed, 800*time.Millisecond)
}

func TestLimiter_ExponentialBackoff_CapsAt60s(t *testing.T) {
	l := New("example.com")
	resp := &http.Response{Header: http.Header{}}

	var lastWait time.Duration
	for i := 0; i < 10; i++ {
		lastWait = l.Handle429(resp)
	}
	assert.LessOrEqual(t, lastWait, 66*time.Second, "backoff should cap near 60s plus jitter")
}

func TestRegistry_ForReturnsSameLimiterPerHost(t *testing.T) {
	r := NewRegistry()
	a := r.For("example.com")
	b := r.For("example.com")
	c := r.For("other.com")

	require.Same(t, a, b, "same host must reuse the same limiter")
	assert.NotSame(t, a, c, "distinct hosts must get distinct limiters")
}
