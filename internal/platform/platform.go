// Package platform holds the few OS-specific helpers the downloader needs.
package platform

import (
	"fmt"
	"os"
)

// FreeDiskSpace returns the bytes available to the current user on the
// filesystem holding dir.
func FreeDiskSpace(dir string) (uint64, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("%s is not a directory", dir)
	}
	return freeDiskSpace(dir)
}
