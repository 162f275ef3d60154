package app

import (
	"errors"

	"github.com/iconidentify/vodgrab/internal/domain"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitError       = 1
	ExitInterrupted = 130
)

// ExitCode maps the result of Run to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, domain.ErrInterrupted):
		return ExitInterrupted
	default:
		return ExitError
	}
}
