//go:build unix

package platform

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func freeDiskSpace(path string) (uint64, error) {
	var fs unix.Statfs_t
	if err := unix.Statfs(path, &fs); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return uint64(fs.Bavail) * uint64(fs.Bsize), nil
}
