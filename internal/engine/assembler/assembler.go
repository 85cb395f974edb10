// Package assembler finalizes a chunked download:
// once every chunk is complete, it concatenates part files into the
// final artifact in plan order and removes scratch state.
package assembler

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rangepull/rangepull/internal/engine/checkpoint"
	"github.com/rangepull/rangepull/internal/engine/types"
	"github.com/rangepull/rangepull/internal/engine/worker"
)

// Assemble concatenates the part files for plan into destPath, in plan
// order, deleting each part file immediately after it is copied. On
// success it removes scratchDir and the checkpoint sidecar.
//
// If stopFlag becomes set while parts remain, Assemble aborts before
// touching the next part file: scratchDir and any remaining parts are
// preserved, and the partially-written destPath is left in place.
func Assemble(scratchDir, filename, destPath string, plan types.Plan, stopFlag func() bool) error {
	dest, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrAssembly, err)
	}
	defer dest.Close()

	for i, rng := range plan.Chunks {
		if stopFlag != nil && stopFlag() {
			return types.ErrStopped
		}

		partPath := worker.PartPath(scratchDir, filename, i)
		if err := appendPart(dest, partPath, rng.Len()); err != nil {
			return fmt.Errorf("%w: %v", types.ErrAssembly, err)
		}
		if err := os.Remove(partPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: removing part %d: %v", types.ErrAssembly, i, err)
		}
	}

	if err := checkpoint.Delete(scratchDir, filename); err != nil {
		return fmt.Errorf("%w: %v", types.ErrAssembly, err)
	}
	if err := os.RemoveAll(scratchDir); err != nil {
		return fmt.Errorf("%w: %v", types.ErrAssembly, err)
	}
	return nil
}

func appendPart(dest *os.File, partPath string, expectedLen int64) error {
	part, err := os.Open(partPath)
	if err != nil {
		return err
	}
	defer part.Close()

	n, err := io.Copy(dest, part)
	if err != nil {
		return err
	}
	if n != expectedLen {
		return fmt.Errorf("part %s: copied %d bytes, expected %d", partPath, n, expectedLen)
	}
	return nil
}
