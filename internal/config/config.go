// Package config resolves the module's on-disk home directory.
package config

import (
	"os"
	"path/filepath"
)

const dirName = ".rangepull"

// GetConfigDir returns the module's configuration directory, typically
// $HOME/.rangepull. It never fails; on error it falls back to a
// relative path so callers always get a usable value.
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return dirName
	}
	return filepath.Join(home, dirName)
}

// GetLogsDir returns the directory debug logs are written to.
func GetLogsDir() string {
	return filepath.Join(GetConfigDir(), "logs")
}

// EnsureDirs creates the config and logs directories if they don't exist.
func EnsureDirs() error {
	if err := os.MkdirAll(GetConfigDir(), 0755); err != nil {
		return err
	}
	return os.MkdirAll(GetLogsDir(), 0755)
}
