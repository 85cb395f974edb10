package types

// Checkpoint is the sidecar record written inside a task's scratch
// directory. It makes the Plan reproducible across restarts: once
// written, its ChunkSizeBytes and MaxWorkers override the task's
// configuration for every subsequent run against the same destination,
// so previously written part files stay aligned with the plan's
// chunk boundaries.
//
// Field names are part of the on-disk format. Unknown
// fields are ignored on read; if any of these three is missing, the
// loader treats the checkpoint as absent rather than guessing.
type Checkpoint struct {
	URL            string `json:"url"`
	ChunkSizeBytes int64  `json:"chunk_size_bytes"`
	MaxWorkers     int    `json:"max_workers"`
}
