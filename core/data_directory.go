package core

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDataDirectory creates dir (owner-only) and confirms it is writable
// by creating and removing a probe file.
func EnsureDataDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return &ConfigError{
			Code:    ErrCodeDataDir,
			Message: fmt.Sprintf("Cannot create data directory %s: %v", dir, err),
			Action:  "Set DATA_DIR to a writable location",
		}
	}
	probe, err := os.CreateTemp(dir, ".write-probe-*")
	if err != nil {
		return &ConfigError{
			Code:    ErrCodeDataDir,
			Message: fmt.Sprintf("Data directory %s is not writable: %v", dir, err),
			Action:  "Fix the directory permissions or set DATA_DIR elsewhere",
		}
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}

// DataFilePath joins name onto the data directory.
func (c *Config) DataFilePath(name string) string {
	return filepath.Join(c.DataDir, name)
}
