//go:build windows

package proxy

import (
	"strings"

	"golang.org/x/sys/windows/registry"
)

// platformSystemProxies reads the
// HKCU\Software\Microsoft\Windows\CurrentVersion\Internet Settings
// ProxyEnable/ProxyServer registry values.
func platformSystemProxies() map[string]string {
	key, err := registry.OpenKey(registry.CURRENT_USER,
		`Software\Microsoft\Windows\CurrentVersion\Internet Settings`, registry.QUERY_VALUE)
	if err != nil {
		return nil
	}
	defer key.Close()

	enabled, _, err := key.GetIntegerValue("ProxyEnable")
	if err != nil || enabled == 0 {
		return nil
	}

	server, _, err := key.GetStringValue("ProxyServer")
	if err != nil || server == "" {
		return nil
	}

	// ProxyServer may be a single "host:port" applied to all schemes,
	// or a "scheme=host:port;scheme=host:port" list.
	if !strings.Contains(server, "=") {
		endpoint := "http://" + server
		return map[string]string{"http": endpoint, "https": endpoint}
	}

	result := make(map[string]string)
	for _, part := range strings.Split(server, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		result[strings.ToLower(kv[0])] = "http://" + kv[1]
	}
	return result
}
