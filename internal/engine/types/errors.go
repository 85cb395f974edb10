package types

import "errors"

// Error taxonomy. A short-read chunk is not a distinct
// sentinel: a chunk that receives fewer bytes than requested is
// reported as ErrChunkTransport after the retry budget is exhausted,
// since the worker treats early stream termination as a transport
// failure and retries it identically.
var (
	// ErrProbe: HEAD and the ranged-GET probe fallback both failed, or
	// the response was malformed. Fatal for the task.
	ErrProbe = errors.New("probe failed")

	// ErrPlan: the download could not be set up: the download or
	// scratch directory could not be created, or another process holds
	// the scratch lock. An unknown total size is not reported as ErrPlan;
	// the controller takes the single-stream path instead.
	ErrPlan = errors.New("unable to plan download")

	// ErrChunkTransport: a chunk worker exhausted its retry budget, or
	// the single-stream download (which makes one attempt) failed.
	ErrChunkTransport = errors.New("chunk transport error")

	// ErrAssembly: a filesystem error occurred during final concatenation.
	ErrAssembly = errors.New("assembly failed")

	// ErrStopped is returned internally when the stop flag is observed;
	// it is not a failure and never reaches the Failed state.
	ErrStopped = errors.New("stopped")
)
