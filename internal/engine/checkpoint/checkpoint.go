// Package checkpoint persists a
// JSON sidecar recording the plan parameters a chunk layout was
// produced from, so a resumed task re-derives the same plan instead of
// misaligning part files against a fresh configuration.
package checkpoint

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/rangepull/rangepull/internal/engine/types"
)

// Path returns the sidecar path for filename inside scratchDir:
// D/S/F.state.
func Path(scratchDir, filename string) string {
	return filepath.Join(scratchDir, filename+types.StateSuffix)
}

// Load reads the checkpoint for filename in scratchDir. A missing
// file, unreadable file, or record missing a known field is treated as
// "absent": (nil, nil). Unknown JSON fields are ignored by
// encoding/json unmarshal semantics already.
func Load(scratchDir, filename string) (*types.Checkpoint, error) {
	data, err := os.ReadFile(Path(scratchDir, filename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, nil //nolint:nilerr // a corrupt sidecar is treated as absent, not fatal
	}

	var raw struct {
		URL            *string `json:"url"`
		ChunkSizeBytes *int64  `json:"chunk_size_bytes"`
		MaxWorkers     *int    `json:"max_workers"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil
	}
	if raw.URL == nil || raw.ChunkSizeBytes == nil || raw.MaxWorkers == nil {
		return nil, nil
	}

	return &types.Checkpoint{
		URL:            *raw.URL,
		ChunkSizeBytes: *raw.ChunkSizeBytes,
		MaxWorkers:     *raw.MaxWorkers,
	}, nil
}

// Save writes the checkpoint for filename in scratchDir using
// write-then-rename semantics, so a crash mid-write cannot leave a
// truncated sidecar. Writes are best-effort: I/O errors are returned
// but the caller is not required to treat them as fatal to the task.
func Save(scratchDir, filename string, cp types.Checkpoint) error {
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return err
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return err
	}

	finalPath := Path(scratchDir, filename)
	tmpPath := finalPath + types.CheckpointTmpSuffix

	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, finalPath)
}

// Delete removes the checkpoint sidecar, if present.
func Delete(scratchDir, filename string) error {
	err := os.Remove(Path(scratchDir, filename))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
