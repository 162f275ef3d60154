//go:build unix

package streamlink

import (
	"os/exec"
	"syscall"
)

// detach starts the child in its own process group.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
