package controller

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rangepull/rangepull/internal/engine/httpclient"
	"github.com/rangepull/rangepull/internal/engine/types"
	"github.com/rangepull/rangepull/internal/utils"
)

// downloadSingleStream is the fallback path when the probe determines
// the server does not honor Range requests (or never revealed a size):
// the whole file is streamed directly to destPath with no part files
// and no checkpoint. Stopping mid-stream leaves a partial destination
// file; there is nothing to resume from, so a restart refetches it.
func (c *Controller) downloadSingleStream(ctx context.Context, finalURL string, proxies map[string]string) error {
	client := httpclient.New(httpclient.Options{
		Timeout:            c.runtime.GetRequestTimeout(),
		Proxies:            proxies,
		InsecureSkipVerify: c.task.InsecureSkipVerify,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrChunkTransport, err)
	}
	req.Header.Set("User-Agent", c.runtime.GetUserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrChunkTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", types.ErrChunkTransport, resp.StatusCode)
	}

	body := io.Reader(resp.Body)

	// The probe only ever resolves a filename from headers (no body in
	// hand). This path does have a body, so when the probe-derived name
	// carries no extension, refine it with a magic-byte sniff before
	// committing to a final path.
	destPath := c.DestPath()
	if filepath.Ext(destPath) == "" {
		if refined, sniffedBody, err := utils.DetermineFilename(finalURL, resp, false); err == nil && refined != "" {
			destPath = filepath.Join(c.task.DownloadDir, refined)
			c.setDestPath(destPath)
			body = sniffedBody
		}
	}

	f, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrChunkTransport, err)
	}
	defer f.Close()

	// The destination was just truncated, so any counter value from an
	// earlier stopped attempt no longer matches bytes on disk.
	c.progress.Downloaded.Store(0)

	buf := make([]byte, c.runtime.GetWorkerBufferSize())
	for {
		if c.progress.StopFlag.Load() {
			return types.ErrStopped
		}
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := f.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("%w: %v", types.ErrChunkTransport, writeErr)
			}
			c.progress.Downloaded.Add(int64(n))
		}
		if readErr != nil {
			if readErr == io.EOF {
				return nil
			}
			return fmt.Errorf("%w: %v", types.ErrChunkTransport, readErr)
		}
	}
}
