package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rangepull/rangepull/internal/config"
)

var (
	debugMu   sync.Mutex
	debugDir  = config.GetLogsDir()
	debugFile *os.File
	debugOnce sync.Once
)

// ConfigureDebug redirects subsequent Debug output to a new directory.
// Intended for tests; resets the lazy file handle so the next Debug
// call opens a fresh log file under dir.
func ConfigureDebug(dir string) {
	debugMu.Lock()
	defer debugMu.Unlock()
	if debugFile != nil {
		debugFile.Close()
		debugFile = nil
	}
	debugDir = dir
	debugOnce = sync.Once{}
}

func openDebugFile() {
	_ = os.MkdirAll(debugDir, 0755)
	name := fmt.Sprintf("debug-%s.log", time.Now().Format("20060102-150405"))
	f, err := os.OpenFile(filepath.Join(debugDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err == nil {
		debugFile = f
	}
}

// Debug writes a timestamped diagnostic line to the module's log file.
// It never returns an error and never blocks the caller on I/O failure.
func Debug(format string, args ...any) {
	debugMu.Lock()
	defer debugMu.Unlock()

	debugOnce.Do(openDebugFile)
	if debugFile == nil {
		return
	}

	line := fmt.Sprintf("[%s] %s\n", time.Now().Format(time.RFC3339Nano), fmt.Sprintf(format, args...))
	debugFile.WriteString(line)
}

// CleanupLogs removes all but the keep newest debug log files in the
// configured log directory.
func CleanupLogs(keep int) {
	entries, err := os.ReadDir(debugDir)
	if err != nil {
		return
	}

	var logs []os.DirEntry
	for _, e := range entries {
		if !e.IsDir() && len(e.Name()) > 6 && e.Name()[:6] == "debug-" {
			logs = append(logs, e)
		}
	}

	if len(logs) <= keep {
		return
	}

	sort.Slice(logs, func(i, j int) bool { return logs[i].Name() < logs[j].Name() })

	toRemove := logs[:len(logs)-keep]
	for _, e := range toRemove {
		os.Remove(filepath.Join(debugDir, e.Name()))
	}
}
