// Package planner maps a total size, configured chunk size, and worker count to a
// deterministic list of non-overlapping byte ranges.
package planner

import "github.com/rangepull/rangepull/internal/engine/types"

// Plan derives a types.Plan from totalSize and the task's configured
// chunkSizeBytes and workerCount.
//
// If chunkSizeBytes*workerCount >= totalSize, the file is split into
// exactly workerCount roughly-equal chunks so small files still use
// every worker (or into totalSize one-byte chunks when totalSize is
// smaller than workerCount). Otherwise it is split into ceil(totalSize/chunkSizeBytes)
// chunks of chunkSizeBytes, with a possibly shorter final chunk.
func Plan(filename string, totalSize, chunkSizeBytes int64, workerCount int) types.Plan {
	if totalSize <= 0 {
		return types.Plan{
			Filename:  filename,
			TotalSize: 0,
			ChunkSize: chunkSizeBytes,
			Chunks:    []types.ByteRange{{Start: 0, End: -1}},
		}
	}

	var chunks []types.ByteRange
	if chunkSizeBytes*int64(workerCount) >= totalSize {
		chunks = equalChunks(totalSize, workerCount)
	} else {
		chunks = fixedSizeChunks(totalSize, chunkSizeBytes)
	}

	return types.Plan{
		Filename:  filename,
		TotalSize: totalSize,
		ChunkSize: chunkSizeBytes,
		Chunks:    chunks,
	}
}

// equalChunks splits totalSize into workerCount chunks of size
// totalSize/workerCount (integer division), with the last chunk
// absorbing the remainder. When totalSize < workerCount, it returns
// totalSize chunks of one byte each.
func equalChunks(totalSize int64, workerCount int) []types.ByteRange {
	if workerCount < 1 {
		workerCount = 1
	}
	base := totalSize / int64(workerCount)
	if base < 1 {
		base = 1
	}

	chunks := make([]types.ByteRange, 0, workerCount)
	start := int64(0)
	for i := 0; i < workerCount && start <= totalSize-1; i++ {
		end := start + base - 1
		last := i == workerCount-1
		if last || end > totalSize-1 {
			end = totalSize - 1
		}
		chunks = append(chunks, types.ByteRange{Start: start, End: end})
		start = end + 1
	}
	return chunks
}

// fixedSizeChunks splits totalSize into chunks of exactly
// chunkSizeBytes, with the final chunk potentially shorter.
func fixedSizeChunks(totalSize, chunkSizeBytes int64) []types.ByteRange {
	if chunkSizeBytes < 1 {
		chunkSizeBytes = totalSize
	}
	count := (totalSize + chunkSizeBytes - 1) / chunkSizeBytes

	chunks := make([]types.ByteRange, 0, count)
	start := int64(0)
	for start <= totalSize-1 {
		end := start + chunkSizeBytes - 1
		if end > totalSize-1 {
			end = totalSize - 1
		}
		chunks = append(chunks, types.ByteRange{Start: start, End: end})
		start = end + 1
	}
	return chunks
}
