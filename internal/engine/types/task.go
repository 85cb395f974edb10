package types

// ProxyMode selects how the Proxy Resolver derives the effective
// scheme -> endpoint mapping for a DownloadTask.
type ProxyMode string

const (
	// ProxyModeSystem consults OS configuration and process environment.
	ProxyModeSystem ProxyMode = "system"
	// ProxyModeManual uses ExplicitProxies verbatim.
	ProxyModeManual ProxyMode = "manual"
)

// DownloadTask is the unit of work constructed by the embedding layer
// and consumed by exactly one Task Controller. It is immutable after
// construction.
type DownloadTask struct {
	URL        string
	DownloadDir string
	// ChunkSizeBytes is the configured target chunk size; a resumed
	// download overrides it with the value recorded in the Checkpoint.
	ChunkSizeBytes int64
	// WorkerCount is the configured number of concurrent range workers;
	// a resumed download overrides it with the Checkpoint's value.
	WorkerCount int
	ProxyMode   ProxyMode
	// ExplicitProxies is the manual scheme -> endpoint URL mapping. Only
	// consulted when ProxyMode is ProxyModeManual.
	ExplicitProxies map[string]string

	// InsecureSkipVerify disables TLS certificate verification. Default
	// false: certificates are verified unless explicitly told not to.
	InsecureSkipVerify bool
}
