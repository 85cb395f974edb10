package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rangepull/rangepull/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebug_WritesToConfiguredDir(t *testing.T) {
	dir := t.TempDir()
	ConfigureDebug(dir)
	defer ConfigureDebug(config.GetLogsDir())

	Debug("hello %s, chunk %d", "world", 3)
	Debug("")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "debug-"))
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".log"))

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello world, chunk 3")
}

func TestDebug_ReconfigureOpensFreshFile(t *testing.T) {
	first := t.TempDir()
	ConfigureDebug(first)
	defer ConfigureDebug(config.GetLogsDir())
	Debug("one")

	second := t.TempDir()
	ConfigureDebug(second)
	Debug("two")

	entries, err := os.ReadDir(second)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "reconfiguring must start a new log file in the new directory")
}

func TestGetLogsDir_Shape(t *testing.T) {
	logsDir := config.GetLogsDir()
	require.NotEmpty(t, logsDir)
	assert.Contains(t, strings.ToLower(logsDir), "rangepull")
	assert.True(t, strings.HasSuffix(logsDir, "logs"))
}

func TestCleanupLogs_KeepsNewest(t *testing.T) {
	dir := t.TempDir()
	ConfigureDebug(dir)
	defer ConfigureDebug(config.GetLogsDir())

	base := time.Now()
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("debug-%s.log", base.Add(time.Duration(i)*time.Hour).Format("20060102-150405"))
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	CleanupLogs(5)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	newest := fmt.Sprintf("debug-%s.log", base.Add(9*time.Hour).Format("20060102-150405"))
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, newest, "cleanup must retain the newest log files")
}

func TestCleanupLogs_NoOpWhenUnderLimit(t *testing.T) {
	dir := t.TempDir()
	ConfigureDebug(dir)
	defer ConfigureDebug(config.GetLogsDir())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "debug-20250101-000000.log"), []byte("x"), 0o644))
	CleanupLogs(5)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
