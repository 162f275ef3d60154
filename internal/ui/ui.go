// Package ui renders progress and lets the operator pick which VODs to
// download, either as a full-screen checklist or from a plain stdin line.
package ui

import (
	"context"
	"os"

	"golang.org/x/term"

	"github.com/iconidentify/vodgrab/internal/domain"
)

// Selector asks the operator which candidates to download.
type Selector interface {
	// Select returns the chosen IDs in list order. Downloaded candidates
	// are never returned. An empty result means nothing was chosen.
	Select(ctx context.Context, candidates []domain.Candidate) ([]domain.VideoID, error)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// NewSelector picks the checklist when both stdin and stdout are terminals
// and the line-based selector otherwise.
func NewSelector(in *os.File, out *os.File) Selector {
	if IsTerminal(in) && IsTerminal(out) {
		return NewChecklistSelector()
	}
	return NewPlainSelector(in, out)
}

// NewProgress animates on a terminal and prints plain lines otherwise.
func NewProgress(out *os.File) *Progress {
	return newProgress(out, IsTerminal(out))
}
