// Package proxy resolves the effective scheme -> endpoint proxy
// mapping for a download task: manual mode uses an
// explicit mapping verbatim, system mode prefers environment variables
// over OS configuration, and the resolver never fails — any lookup
// error degrades to "no proxy" rather than aborting the task.
package proxy

import (
	"os"
	"strings"

	"github.com/rangepull/rangepull/internal/engine/types"
	"github.com/rangepull/rangepull/internal/utils"
)

// Resolve returns either nil (no proxy) or a scheme -> endpoint URL
// mapping for http and https.
func Resolve(mode types.ProxyMode, explicit map[string]string) map[string]string {
	if mode == types.ProxyModeManual {
		if len(explicit) == 0 {
			return nil
		}
		out := make(map[string]string, len(explicit))
		for scheme, endpoint := range explicit {
			out[strings.ToLower(scheme)] = endpoint
		}
		return out
	}

	return resolveSystem()
}

// resolveSystem implements the "system" proxy mode: OS configuration
// first, then environment variables overriding per-scheme.
func resolveSystem() map[string]string {
	result := make(map[string]string)

	if osProxies := systemProxiesFromOS(); osProxies != nil {
		for scheme, endpoint := range osProxies {
			result[scheme] = endpoint
		}
	}

	if v := firstNonEmptyEnv("HTTP_PROXY", "http_proxy"); v != "" {
		result["http"] = v
	}
	if v := firstNonEmptyEnv("HTTPS_PROXY", "https_proxy"); v != "" {
		result["https"] = v
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

func firstNonEmptyEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// systemProxiesFromOS consults OS-specific configuration. It never
// panics or propagates an error up to Resolve: any failure reading
// the platform store is logged and treated as "no OS-level proxy".
func systemProxiesFromOS() (result map[string]string) {
	defer func() {
		if r := recover(); r != nil {
			utils.Debug("proxy: recovered from OS lookup panic: %v", r)
			result = nil
		}
	}()
	return platformSystemProxies()
}
