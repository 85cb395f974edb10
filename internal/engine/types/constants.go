package types

import "time"

// Byte-size units.
const (
	KB = 1 << 10
	MB = 1 << 20
	GB = 1 << 30
)

// Defaults applied when a RuntimeConfig field is zero or the config
// itself is nil. See RuntimeConfig's Get* methods.
const (
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36 rangepull"
	DefaultWorkerBufferSize = 256 * KB
	DefaultMaxTaskRetries   = 3
	DefaultRequestTimeout   = 60 * time.Second
	DefaultProbeTimeout     = 20 * time.Second
	DefaultProbeRetries     = 3
	DefaultSpeedEMAAlpha    = 0.3
	DefaultWriteBufferBytes = 1 * MB // part-file writer flush threshold

	// StateSuffix is the checkpoint sidecar filename suffix.
	StateSuffix = ".state"
	// CheckpointTmpSuffix is the temp-file suffix used for write-then-rename
	// checkpoint writes, so a crash never leaves a truncated checkpoint.
	CheckpointTmpSuffix = ".tmp"
	// PartSuffix prefixes the chunk-index part-file suffix: "<filename>.part<i>".
	PartSuffix = ".part"
)
