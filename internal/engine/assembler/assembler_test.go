package assembler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rangepull/rangepull/internal/engine/types"
	"github.com/rangepull/rangepull/internal/engine/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePart(t *testing.T, scratchDir, filename string, index int, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(scratchDir, 0o755))
	require.NoError(t, os.WriteFile(worker.PartPath(scratchDir, filename, index), data, 0o644))
}

func TestAssemble_HappyPath(t *testing.T) {
	dir := t.TempDir()
	scratchDir := filepath.Join(dir, "f")
	destPath := filepath.Join(dir, "f.bin")

	plan := types.Plan{
		Filename:  "f.bin",
		TotalSize: 10,
		Chunks: []types.ByteRange{
			{Start: 0, End: 4},
			{Start: 5, End: 9},
		},
	}
	writePart(t, scratchDir, "f.bin", 0, []byte("hello"))
	writePart(t, scratchDir, "f.bin", 1, []byte("world"))

	require.NoError(t, Assemble(scratchDir, "f.bin", destPath, plan, func() bool { return false }))

	got, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Equal(t, "helloworld", string(got))
	assert.NoDirExists(t, scratchDir)
}

func TestAssemble_AbortsOnStopFlag(t *testing.T) {
	dir := t.TempDir()
	scratchDir := filepath.Join(dir, "f")
	destPath := filepath.Join(dir, "f.bin")

	plan := types.Plan{
		Filename:  "f.bin",
		TotalSize: 10,
		Chunks: []types.ByteRange{
			{Start: 0, End: 4},
			{Start: 5, End: 9},
		},
	}
	writePart(t, scratchDir, "f.bin", 0, []byte("hello"))
	writePart(t, scratchDir, "f.bin", 1, []byte("world"))

	err := Assemble(scratchDir, "f.bin", destPath, plan, func() bool { return true })
	assert.ErrorIs(t, err, types.ErrStopped)
	assert.DirExists(t, scratchDir)
	assert.FileExists(t, worker.PartPath(scratchDir, "f.bin", 0))
	assert.FileExists(t, worker.PartPath(scratchDir, "f.bin", 1))
}

func TestAssemble_MismatchedPartSizeErrors(t *testing.T) {
	dir := t.TempDir()
	scratchDir := filepath.Join(dir, "f")
	destPath := filepath.Join(dir, "f.bin")

	plan := types.Plan{
		Filename:  "f.bin",
		TotalSize: 10,
		Chunks:    []types.ByteRange{{Start: 0, End: 9}},
	}
	writePart(t, scratchDir, "f.bin", 0, []byte("short"))

	err := Assemble(scratchDir, "f.bin", destPath, plan, func() bool { return false })
	assert.ErrorIs(t, err, types.ErrAssembly)
}
