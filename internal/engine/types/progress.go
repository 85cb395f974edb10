package types

import (
	"sync"
	"sync/atomic"
	"time"
)

// ProgressSnapshot is an ephemeral, non-blocking view of a task's
// progress. ETASeconds is -1 when the rate is zero or not yet known.
type ProgressSnapshot struct {
	DownloadedBytes int64
	TotalBytes      int64
	ETASeconds      int64
}

// unknownSnapshot is returned by progress_snapshot before a probe has
// resolved the total size, per the embedding API contract.
var unknownSnapshot = ProgressSnapshot{DownloadedBytes: -1, TotalBytes: -1, ETASeconds: -1}

// ProgressState holds the two pieces of state shared across workers,
// the driver, and the snapshotter: an atomic downloaded-byte counter
// and an atomic stop flag. Everything else it tracks (total size, rate
// smoothing) is guarded by mu: the driver sets the total size once per
// run (after probe), and Snapshot updates the rate sample on each call.
type ProgressState struct {
	Downloaded atomic.Int64
	StopFlag   atomic.Bool
	Done       atomic.Bool

	mu            sync.Mutex
	totalSize     int64
	startTime     time.Time
	sessionStart  int64 // Downloaded value when the current run began
	lastSampleAt  time.Time
	lastSample    int64
	emaRate       float64
}

// NewProgressState returns a ProgressState with no total size known
// yet; SetTotalSize is called once the probe resolves it.
func NewProgressState() *ProgressState {
	return &ProgressState{startTime: time.Now()}
}

// SetTotalSize records the resolved file size and resets the rate
// sampling window. Called once per run, after a successful probe.
func (p *ProgressState) SetTotalSize(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totalSize = total
	p.startTime = time.Now()
	p.sessionStart = p.Downloaded.Load()
	p.lastSampleAt = p.startTime
	p.lastSample = p.sessionStart
	p.emaRate = 0
}

// Reset clears the stop flag and Done state for a restart, without
// losing the Downloaded counter (which reflects bytes already on disk).
func (p *ProgressState) Reset() {
	p.StopFlag.Store(false)
	p.Done.Store(false)
}

// Snapshot computes a ProgressSnapshot from the atomic counters and a
// sampled EMA rate. It must not block on I/O; the only lock taken
// guards the small, CPU-only rate bookkeeping.
func (p *ProgressState) Snapshot(emaAlpha float64) ProgressSnapshot {
	downloaded := p.Downloaded.Load()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.totalSize <= 0 {
		return unknownSnapshot
	}

	now := time.Now()
	elapsed := now.Sub(p.lastSampleAt).Seconds()
	if elapsed > 0 {
		instant := float64(downloaded-p.lastSample) / elapsed
		if p.emaRate == 0 {
			p.emaRate = instant
		} else {
			p.emaRate = emaAlpha*instant + (1-emaAlpha)*p.emaRate
		}
		p.lastSample = downloaded
		p.lastSampleAt = now
	}

	eta := int64(-1)
	if p.emaRate > 0 {
		remaining := p.totalSize - downloaded
		if remaining <= 0 {
			eta = 0
		} else {
			eta = int64(float64(remaining) / p.emaRate)
		}
	}

	return ProgressSnapshot{
		DownloadedBytes: downloaded,
		TotalBytes:      p.totalSize,
		ETASeconds:      eta,
	}
}

// TotalSize returns the resolved total size, or 0 if not yet probed.
func (p *ProgressState) TotalSize() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalSize
}
