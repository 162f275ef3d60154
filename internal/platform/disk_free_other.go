//go:build !unix && !windows

package platform

import "errors"

func freeDiskSpace(string) (uint64, error) {
	return 0, errors.ErrUnsupported
}
