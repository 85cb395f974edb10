// Package worker implements the range worker pool: a
// bounded pool of goroutines that executes a fixed Plan, each worker
// downloading one chunk range with retries, resuming from on-disk part
// size, and never writing past its chunk's end byte.
package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rangepull/rangepull/internal/engine/ratelimit"
	"github.com/rangepull/rangepull/internal/engine/types"
	"github.com/rangepull/rangepull/internal/utils"
)

// Chunk is one unit of work submitted to the pool: a chunk index, its
// target part-file path, and its byte range.
type Chunk struct {
	Index    int
	PartPath string
	Range    types.ByteRange
}

// Pool executes a fixed set of chunks against rawurl with bounded
// concurrency.
type Pool struct {
	RawURL      string
	Client      *http.Client
	Runtime     *types.RuntimeConfig
	WorkerCount int
	Progress    *types.ProgressState
	Limiters    *ratelimit.Registry
}

// New returns a Pool. progress.StopFlag is polled by every chunk
// worker as the cooperative cancellation signal.
func New(rawurl string, client *http.Client, runtime *types.RuntimeConfig, workerCount int, progress *types.ProgressState) *Pool {
	return &Pool{
		RawURL:      rawurl,
		Client:      client,
		Runtime:     runtime,
		WorkerCount: workerCount,
		Progress:    progress,
		Limiters:    ratelimit.NewRegistry(),
	}
}

// errCancelled marks a chunk attempt that stopped because the stop
// flag was observed; it is filtered out of Run's error aggregation
// since cancellation is not a chunk failure.
var errCancelled = errors.New("worker: cancelled")

// Run submits chunks in plan order and blocks until every submitted
// chunk has finished (succeeded, failed after exhausting retries, or
// stopped on the stop flag); a failed chunk does not cancel the others.
// It returns the first failure, wrapped in types.ErrChunkTransport. At
// most WorkerCount chunks execute concurrently.
func (p *Pool) Run(ctx context.Context, chunks []Chunk) error {
	if p.WorkerCount < 1 {
		p.WorkerCount = 1
	}

	jobs := make(chan Chunk)
	results := make(chan error, len(chunks))

	var wg sync.WaitGroup
	for i := 0; i < p.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			buf := make([]byte, p.Runtime.GetWorkerBufferSize())
			for chunk := range jobs {
				results <- p.runChunk(ctx, chunk, buf)
			}
		}(i)
	}

	go func() {
		defer close(jobs)
		for _, c := range chunks {
			select {
			case jobs <- c:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var firstErr error
	for i := 0; i < len(chunks); i++ {
		err, ok := <-results
		if !ok {
			break
		}
		if err != nil && firstErr == nil && !errors.Is(err, errCancelled) {
			firstErr = err
		}
	}

	if firstErr != nil {
		return fmt.Errorf("%w: %v", types.ErrChunkTransport, firstErr)
	}
	if p.Progress.StopFlag.Load() || ctx.Err() != nil {
		return types.ErrStopped
	}
	return nil
}

// runChunk downloads one chunk:
// observe on-disk size, request the remainder, truncate writes to the
// chunk boundary, retry transport errors with a bounded budget, and
// honor the stop flag at every read.
func (p *Pool) runChunk(ctx context.Context, chunk Chunk, buf []byte) error {
	maxRetries := p.Runtime.GetMaxTaskRetries()
	limiter := p.Limiters.For(hostOf(p.RawURL))

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(1<<attempt) * 500 * time.Millisecond)
		}
		if p.Progress.StopFlag.Load() || ctx.Err() != nil {
			return errCancelled
		}

		limiter.WaitIfBlocked()

		done, err := p.attemptChunk(ctx, chunk, buf, limiter)
		if done {
			return nil
		}
		if errors.Is(err, errCancelled) {
			return err
		}
		lastErr = err
		utils.Debug("worker: chunk %d attempt %d failed: %v", chunk.Index, attempt+1, err)
	}
	return fmt.Errorf("chunk %d: %w", chunk.Index, lastErr)
}

// attemptChunk runs one attempt: re-derive remaining bytes from
// on-disk part size, issue the ranged GET, and stream it to the part
// file. Returns (true, nil) when the chunk is fully written.
func (p *Pool) attemptChunk(ctx context.Context, chunk Chunk, buf []byte, limiter *ratelimit.Limiter) (bool, error) {
	partSize, err := partFileSize(chunk.PartPath)
	if err != nil {
		return false, err
	}

	start := chunk.Range.Start + partSize
	remaining := chunk.Range.End - start + 1
	if remaining <= 0 {
		return true, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.RawURL, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", p.Runtime.GetUserAgent())
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, chunk.Range.End))

	resp, err := p.Client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		limiter.Handle429(resp)
		return false, fmt.Errorf("rate limited (429)")
	}
	// A 200 here would mean the server ignored the Range header and is
	// sending the file from byte 0 — appending that to a mid-file part
	// would corrupt it. Only 206 carries the requested range.
	if resp.StatusCode != http.StatusPartialContent {
		return false, fmt.Errorf("expected 206 for range %d-%d, got %d", start, chunk.Range.End, resp.StatusCode)
	}

	f, err := os.OpenFile(chunk.PartPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	// Batch small reads into ~1MB writes instead of a syscall per read.
	bw := bufio.NewWriterSize(f, types.DefaultWriteBufferBytes)
	written, cancelled, err := p.stream(resp.Body, bw, buf, remaining)
	if flushErr := bw.Flush(); flushErr != nil && err == nil {
		err = flushErr
	}
	if written > 0 {
		limiter.ReportSuccess()
	}
	if cancelled {
		return false, errCancelled
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// stream copies up to remaining bytes from r to w, incrementing the
// shared progress counter after every write and polling the stop flag
// before each read. It never writes more than remaining bytes even if
// the server sends more.
func (p *Pool) stream(r io.Reader, w io.Writer, buf []byte, remaining int64) (written int64, cancelled bool, err error) {
	for remaining > 0 {
		if p.Progress.StopFlag.Load() {
			return written, true, nil
		}

		readLen := int64(len(buf))
		if readLen > remaining {
			readLen = remaining
		}

		n, readErr := r.Read(buf[:readLen])
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				return written, false, fmt.Errorf("write error: %w", writeErr)
			}
			written += int64(n)
			remaining -= int64(n)
			p.Progress.Downloaded.Add(int64(n))
		}
		if readErr != nil {
			if readErr == io.EOF {
				if remaining > 0 {
					return written, false, fmt.Errorf("%w: end of stream with %d bytes remaining", types.ErrChunkTransport, remaining)
				}
				return written, false, nil
			}
			return written, false, fmt.Errorf("read error: %w", readErr)
		}
	}
	return written, false, nil
}

func partFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	return info.Size(), nil
}

func hostOf(rawurl string) string {
	u, err := url.Parse(rawurl)
	if err != nil {
		return rawurl
	}
	return u.Hostname()
}

// PartPath derives the scratch path for chunk index of filename:
// <scratchDir>/<filename>.part<index>.
func PartPath(scratchDir, filename string, index int) string {
	return filepath.Join(scratchDir, fmt.Sprintf("%s%s%d", filename, types.PartSuffix, index))
}
