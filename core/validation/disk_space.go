package validation

import (
	"fmt"
	"os"
	"path/filepath"

	"roomify/core"
)

// MinFreeBytes is the free space below which the data directory check warns.
const MinFreeBytes = 1 * core.BytesPerGB

// DiskSpace describes the filesystem holding a path.
type DiskSpace struct {
	Path  string
	Total int64
	Free  int64
}

// GetDiskSpace walks up from path to the nearest existing directory and
// reports its filesystem.
func GetDiskSpace(path string) (*DiskSpace, error) {
	dir := path
	for {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				dir = filepath.Dir(dir)
			}
			break
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("cannot access path %s: %w", dir, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, fmt.Errorf("no existing parent for %s", path)
		}
		dir = parent
	}

	total, free, err := freeSpace(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get disk space for %s: %w", dir, err)
	}
	return &DiskSpace{Path: dir, Total: total, Free: free}, nil
}
