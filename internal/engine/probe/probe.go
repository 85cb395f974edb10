// Package probe implements the metadata probe: it resolves the final URL, filename, total size, and whether the
// server honors byte ranges, before any chunk plan is made.
package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rangepull/rangepull/internal/engine/httpclient"
	"github.com/rangepull/rangepull/internal/engine/types"
	"github.com/rangepull/rangepull/internal/utils"
)

// Result is the outcome of a successful probe.
type Result struct {
	FinalURL      string
	Filename      string
	TotalSize     int64
	AcceptsRanges bool
}

func newClient(runtime *types.RuntimeConfig, insecureSkipVerify bool, proxies map[string]string) *http.Client {
	return httpclient.New(httpclient.Options{
		Timeout:            runtime.GetProbeTimeout(),
		Proxies:            proxies,
		InsecureSkipVerify: insecureSkipVerify,
		Overall:            true,
	})
}

// Probe issues a HEAD request (redirects followed). If HEAD fails or
// returns an incomplete response, it falls back to a ranged GET of
// bytes=0-1; a 206 response both confirms range support and yields
// length. It retries the configured budget of attempts before
// returning an error wrapping types.ErrProbe.
func Probe(ctx context.Context, rawurl string, runtime *types.RuntimeConfig, insecureSkipVerify bool, proxies map[string]string) (*Result, error) {
	client := newClient(runtime, insecureSkipVerify, proxies)
	retries := runtime.GetProbeRetries()

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
		}

		result, err := probeOnce(ctx, client, rawurl, runtime)
		if err == nil {
			utils.Debug("probe succeeded for %s: size=%d ranges=%v filename=%s",
				rawurl, result.TotalSize, result.AcceptsRanges, result.Filename)
			return result, nil
		}
		lastErr = err
		utils.Debug("probe attempt %d failed: %v", attempt+1, err)
	}

	return nil, fmt.Errorf("%w: %v", types.ErrProbe, lastErr)
}

func probeOnce(ctx context.Context, client *http.Client, rawurl string, runtime *types.RuntimeConfig) (*Result, error) {
	headResult, headErr := probeHead(ctx, client, rawurl, runtime)
	if headErr == nil && headResult.AcceptsRanges && headResult.TotalSize > 0 {
		return headResult, nil
	}
	if headErr != nil {
		utils.Debug("HEAD probe failed, falling back to ranged GET: %v", headErr)
	} else {
		// HEAD succeeded but left range support or size unresolved; many
		// servers omit Accept-Ranges yet honor Range, so a 206 from a
		// two-byte GET settles both.
		utils.Debug("HEAD probe incomplete (size=%d ranges=%v), confirming with ranged GET",
			headResult.TotalSize, headResult.AcceptsRanges)
	}

	getResult, getErr := probeRangedGet(ctx, client, rawurl, runtime)
	if getErr != nil {
		if headErr == nil {
			return headResult, nil
		}
		return nil, getErr
	}
	if getResult.TotalSize == 0 && headErr == nil && headResult.TotalSize > 0 {
		// Content-Range came back with an unknown total; the HEAD's
		// Content-Length is still the better answer.
		getResult.TotalSize = headResult.TotalSize
	}
	return getResult, nil
}

func probeHead(ctx context.Context, client *http.Client, rawurl string, runtime *types.RuntimeConfig) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawurl, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", runtime.GetUserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HEAD returned status %d", resp.StatusCode)
	}

	finalURL := rawurl
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	totalSize := parseContentLength(resp.Header.Get("Content-Length"))
	acceptsRanges := resp.Header.Get("Accept-Ranges") == "bytes"

	return &Result{
		FinalURL:      finalURL,
		Filename:      utils.ParseFilenameFromHeaders(resp.Header, finalURL),
		TotalSize:     totalSize,
		AcceptsRanges: acceptsRanges,
	}, nil
}

// probeRangedGet is the fallback path for servers that reject or
// mishandle HEAD: a GET with Range: bytes=0-1. A 206 confirms range
// support; the Content-Range total gives the size. A 200 means the
// server ignores ranges, so the engine must use the single-stream
// fallback.
func probeRangedGet(ctx context.Context, client *http.Client, rawurl string, runtime *types.RuntimeConfig) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", runtime.GetUserAgent())
	req.Header.Set("Range", "bytes=0-1")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		// Drain at most a few KB; a 200 body here is the whole file and
		// closing mid-stream is cheaper than reading it out.
		io.CopyN(io.Discard, resp.Body, 8*types.KB)
		resp.Body.Close()
	}()

	finalURL := rawurl
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	switch resp.StatusCode {
	case http.StatusPartialContent:
		total := parseContentRangeTotal(resp.Header.Get("Content-Range"))
		return &Result{
			FinalURL:      finalURL,
			Filename:      utils.ParseFilenameFromHeaders(resp.Header, finalURL),
			TotalSize:     total,
			AcceptsRanges: true,
		}, nil
	case http.StatusOK:
		total := parseContentLength(resp.Header.Get("Content-Length"))
		return &Result{
			FinalURL:      finalURL,
			Filename:      utils.ParseFilenameFromHeaders(resp.Header, finalURL),
			TotalSize:     total,
			AcceptsRanges: false,
		}, nil
	default:
		return nil, fmt.Errorf("unexpected status %d from probe GET", resp.StatusCode)
	}
}

func parseContentLength(v string) int64 {
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parseContentRangeTotal parses "bytes 0-1/12345" into 12345, or 0 if
// the total is "*" (unknown) or malformed.
func parseContentRangeTotal(contentRange string) int64 {
	if contentRange == "" {
		return 0
	}
	idx := -1
	for i := len(contentRange) - 1; i >= 0; i-- {
		if contentRange[i] == '/' {
			idx = i
			break
		}
	}
	if idx == -1 || idx+1 >= len(contentRange) {
		return 0
	}
	sizeStr := contentRange[idx+1:]
	if sizeStr == "*" {
		return 0
	}
	n, err := strconv.ParseInt(sizeStr, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
