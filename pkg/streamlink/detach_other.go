//go:build !unix

package streamlink

import "os/exec"

func detach(*exec.Cmd) {}
