// Package controller implements the task controller: the
// state machine that owns one DownloadTask's lifecycle and composes
// Probe -> Plan -> Checkpoint -> Pool -> Assembler into a single
// driver run, exposing the embedding API (construct/start/stop/
// is_completed/progress_snapshot).
package controller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rangepull/rangepull/internal/engine/assembler"
	"github.com/rangepull/rangepull/internal/engine/checkpoint"
	"github.com/rangepull/rangepull/internal/engine/httpclient"
	"github.com/rangepull/rangepull/internal/engine/planner"
	"github.com/rangepull/rangepull/internal/engine/probe"
	"github.com/rangepull/rangepull/internal/engine/proxy"
	"github.com/rangepull/rangepull/internal/engine/scratchlock"
	"github.com/rangepull/rangepull/internal/engine/types"
	"github.com/rangepull/rangepull/internal/engine/worker"
	"github.com/rangepull/rangepull/internal/utils"

	"github.com/google/uuid"
)

// Controller drives one DownloadTask through Idle -> Running ->
// {Completed, Failed, Stopped}. It is safe for one goroutine to call
// Start/Stop/IsCompleted/ProgressSnapshot concurrently with an
// in-flight driver run; all shared state is behind the mutex or atomics.
type Controller struct {
	task    types.DownloadTask
	runtime *types.RuntimeConfig

	// TaskID identifies this controller in log lines; it has no
	// on-disk or wire meaning, since the checkpoint and scratch
	// directory are already keyed by destination path.
	TaskID string

	progress *types.ProgressState

	mu       sync.Mutex
	state    types.TaskState
	lastErr  error
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	destPath string
}

// New constructs a Controller for task (the embedding API's
// `construct` operation). The task is immutable after this point.
func New(task types.DownloadTask, runtime *types.RuntimeConfig) *Controller {
	return &Controller{
		task:     task,
		runtime:  runtime,
		TaskID:   uuid.New().String(),
		progress: types.NewProgressState(),
		state:    types.StateIdle,
	}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() types.TaskState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsCompleted implements `is_completed`: true only in state Completed.
func (c *Controller) IsCompleted() bool {
	return c.State() == types.StateCompleted
}

// LastError returns the error that moved the task into Failed, if any.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// ProgressSnapshot implements `progress_snapshot`. Non-blocking.
func (c *Controller) ProgressSnapshot() types.ProgressSnapshot {
	return c.progress.Snapshot(c.runtime.GetSpeedEMAAlpha())
}

// DestPath returns the resolved destination path, or "" before the
// probe has resolved a filename.
func (c *Controller) DestPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destPath
}

func (c *Controller) setDestPath(p string) {
	c.mu.Lock()
	c.destPath = p
	c.mu.Unlock()
}

// Start implements `start`: Idle or Stopped (or Failed, to retry) ->
// Running. Idempotent if already Running; a no-op once Completed,
// which is terminal.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.state == types.StateRunning || c.state == types.StateCompleted {
		c.mu.Unlock()
		return
	}
	c.state = types.StateRunning
	c.lastErr = nil
	c.progress.Reset()
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.drive(runCtx)
	}()
}

// Stop implements `stop(flag)`. flag=true requests graceful
// cancellation and blocks until the driver unwinds; flag=false clears
// the stop flag so a subsequent Start resumes from the checkpoint.
func (c *Controller) Stop(flag bool) {
	if flag {
		c.progress.StopFlag.Store(true)
		c.mu.Lock()
		cancel := c.cancel
		c.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		c.wg.Wait()

		c.mu.Lock()
		if c.state == types.StateRunning {
			c.state = types.StateStopped
		}
		c.mu.Unlock()
		return
	}

	c.progress.StopFlag.Store(false)
	c.mu.Lock()
	if c.state == types.StateStopped {
		c.state = types.StateIdle
	}
	c.mu.Unlock()
}

func (c *Controller) fail(err error) {
	utils.Debug("controller: task failed: %v", err)
	c.mu.Lock()
	c.state = types.StateFailed
	c.lastErr = err
	c.mu.Unlock()
}

func (c *Controller) complete() {
	c.mu.Lock()
	c.state = types.StateCompleted
	c.mu.Unlock()
	c.progress.Done.Store(true)
}

// markStopped records a graceful stop: the driver unwound because the
// stop flag (or context cancellation) was observed, not because of a
// failure. Completed/Failed set by a racing path win.
func (c *Controller) markStopped() {
	c.mu.Lock()
	if c.state == types.StateRunning {
		c.state = types.StateStopped
	}
	c.mu.Unlock()
}

// drive runs Probe -> Plan -> Checkpoint -> Pool -> Assembler once. It
// is re-entered on every Start, re-reading the checkpoint so a
// resumed run honors the original plan's chunk boundaries.
func (c *Controller) drive(ctx context.Context) {
	utils.Debug("controller[%s]: driving %s", c.TaskID, c.task.URL)
	proxies := proxy.Resolve(c.task.ProxyMode, c.task.ExplicitProxies)
	if proxies != nil {
		utils.Debug("controller[%s]: proxy detected for schemes %v", c.TaskID, proxySchemes(proxies))
	} else {
		utils.Debug("controller[%s]: no proxy configured", c.TaskID)
	}

	probeResult, err := probe.Probe(ctx, c.task.URL, c.runtime, c.task.InsecureSkipVerify, proxies)
	if err != nil {
		if ctx.Err() != nil {
			c.markStopped()
			return
		}
		c.fail(err)
		return
	}
	c.progress.SetTotalSize(probeResult.TotalSize)

	filename := probeResult.Filename
	destPath := filepath.Join(c.task.DownloadDir, filename)
	c.setDestPath(destPath)

	if err := os.MkdirAll(c.task.DownloadDir, 0o755); err != nil {
		c.fail(fmt.Errorf("%w: %v", types.ErrPlan, err))
		return
	}

	// A prior run may have already assembled the final artifact and
	// removed the scratch directory. If the destination already holds
	// exactly TotalSize bytes, the task is done without any further
	// network I/O for bytes (the probe's HEAD is metadata only).
	if probeResult.TotalSize > 0 {
		if info, statErr := os.Stat(destPath); statErr == nil && info.Size() == probeResult.TotalSize {
			c.progress.Downloaded.Store(probeResult.TotalSize)
			c.complete()
			return
		}
	}

	// The single-stream fallback (no range support) never creates
	// scratch state: there are no chunk boundaries to make resumable,
	// so no .part files or checkpoint should exist on disk.
	// A server that honors ranges but never revealed a size (no
	// Content-Length) can't be chunk-planned either; fall back to the
	// same single-stream path rather than failing outright.
	if !probeResult.AcceptsRanges || probeResult.TotalSize <= 0 {
		if err := c.downloadSingleStream(ctx, probeResult.FinalURL, proxies); err != nil {
			if errors.Is(err, types.ErrStopped) || ctx.Err() != nil {
				c.markStopped()
				return
			}
			c.fail(err)
			return
		}
		c.complete()
		return
	}

	scratchDir := filepath.Join(c.task.DownloadDir, scratchName(filename))

	lock, ok, err := scratchlock.Acquire(scratchDir)
	if err != nil {
		c.fail(fmt.Errorf("%w: %v", types.ErrPlan, err))
		return
	}
	if !ok {
		c.fail(fmt.Errorf("%w: another process is already downloading %s", types.ErrPlan, filename))
		return
	}
	defer lock.Release()

	chunkSize := c.task.ChunkSizeBytes
	workerCount := c.task.WorkerCount
	if cp, _ := checkpoint.Load(scratchDir, filename); cp != nil {
		chunkSize = cp.ChunkSizeBytes
		workerCount = cp.MaxWorkers
		utils.Debug("controller: resuming %s from checkpoint (chunk_size=%d workers=%d)", filename, chunkSize, workerCount)
	} else {
		if err := checkpoint.Save(scratchDir, filename, types.Checkpoint{
			URL:            probeResult.FinalURL,
			ChunkSizeBytes: chunkSize,
			MaxWorkers:     workerCount,
		}); err != nil {
			utils.Debug("controller: failed to write checkpoint: %v", err)
		}
	}

	plan := planner.Plan(filename, probeResult.TotalSize, chunkSize, workerCount)

	client := httpclient.New(httpclient.Options{
		Timeout:            c.runtime.GetRequestTimeout(),
		Proxies:            proxies,
		InsecureSkipVerify: c.task.InsecureSkipVerify,
		MaxConnsPerHost:    workerCount,
	})

	chunks := make([]worker.Chunk, len(plan.Chunks))
	var onDisk int64
	for i, rng := range plan.Chunks {
		chunks[i] = worker.Chunk{
			Index:    i,
			PartPath: worker.PartPath(scratchDir, filename, i),
			Range:    rng,
		}
		if info, statErr := os.Stat(chunks[i].PartPath); statErr == nil {
			size := info.Size()
			if size > rng.Len() {
				size = rng.Len()
			}
			onDisk += size
		}
	}
	// Part files are the source of truth for progress: seed the counter
	// with what previous runs already wrote, so workers only add the
	// bytes they fetch and the counter reaches TotalSize exactly when
	// every chunk completes.
	c.progress.Downloaded.Store(onDisk)

	pool := worker.New(probeResult.FinalURL, client, c.runtime, workerCount, c.progress)
	if err := pool.Run(ctx, chunks); err != nil {
		if errors.Is(err, types.ErrStopped) || ctx.Err() != nil {
			c.markStopped()
			return
		}
		c.fail(err)
		return
	}

	if err := assembler.Assemble(scratchDir, filename, destPath, plan, c.progress.StopFlag.Load); err != nil {
		if errors.Is(err, types.ErrStopped) || ctx.Err() != nil {
			c.markStopped()
			return
		}
		c.fail(err)
		return
	}

	c.complete()
}

// proxySchemes lists the mapped schemes without their endpoints, which
// may carry credentials that don't belong in a log file.
func proxySchemes(proxies map[string]string) []string {
	schemes := make([]string, 0, len(proxies))
	for scheme := range proxies {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)
	return schemes
}

// scratchName is the per-task scratch directory name: the filename's
// stem, unless the filename has no extension, in which case the stem
// would collide with the destination path itself.
func scratchName(filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		return filename + ".parts"
	}
	return strings.TrimSuffix(filename, ext)
}
