// Package streamlink runs the external streamlink binary, one download at a
// time, and lets a signal handler interrupt it.
package streamlink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/iconidentify/vodgrab/internal/domain"
)

// Defaults for Config.
const (
	DefaultBinary  = "streamlink"
	DefaultQuality = "best"
)

// Config configures a Supervisor.
type Config struct {
	Binary    string
	Quality   string
	ExtraArgs []string

	// Child stdout and stderr. Nil discards.
	Stdout io.Writer
	Stderr io.Writer
}

// Supervisor owns at most one running streamlink child.
type Supervisor struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	active    *exec.Cmd
	signalled bool
}

// New creates a new supervisor.
func New(cfg Config, logger *slog.Logger) *Supervisor {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Quality == "" {
		cfg.Quality = DefaultQuality
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		cfg:    cfg,
		logger: logger.With("component", "streamlink"),
	}
}

// EnsureAvailable checks that the binary can be found.
func (s *Supervisor) EnsureAvailable() error {
	path, err := exec.LookPath(s.cfg.Binary)
	if err != nil {
		return &domain.NotFoundError{Kind: "binary", Name: s.cfg.Binary}
	}
	s.logger.Debug("found binary", "path", path)
	return nil
}

// OutputPath returns where Download would write fileName inside outputDir.
func OutputPath(outputDir, fileName string) (string, error) {
	dir, err := filepath.Abs(outputDir)
	if err != nil {
		return "", fmt.Errorf("resolve output dir: %w", err)
	}
	path := filepath.Join(dir, SanitizeFileName(fileName))

	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || strings.ContainsRune(rel, filepath.Separator) {
		return "", fmt.Errorf("file name %q escapes %s", fileName, dir)
	}
	return path, nil
}

// Download runs the binary for url and blocks until the child exits.
// Cancelling ctx interrupts the child; Download still waits for it to exit.
// Nothing is started when ctx is already done.
func (s *Supervisor) Download(ctx context.Context, url, outputDir, fileName string) error {
	path, err := OutputPath(outputDir, fileName)
	if err != nil {
		return &domain.DownloadError{URL: url, Err: err}
	}

	args := make([]string, 0, len(s.cfg.ExtraArgs)+4)
	args = append(args, s.cfg.ExtraArgs...)
	args = append(args, "--output", path, url, s.cfg.Quality)

	cmd := exec.Command(s.cfg.Binary, args...)
	cmd.Stdout = s.cfg.Stdout
	cmd.Stderr = s.cfg.Stderr
	// The child only hears interrupts sent through CancelActive, not the
	// terminal's SIGINT to the whole foreground group.
	detach(cmd)

	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		return domain.ErrDownloadActive
	}
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		return &domain.DownloadError{URL: url, Err: err}
	}
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return &domain.DownloadError{URL: url, Err: err}
	}
	s.active = cmd
	s.signalled = false
	s.mu.Unlock()

	s.logger.Info("download started", "url", url, "output", path, "pid", cmd.Process.Pid)
	started := time.Now()

	done := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		s.mu.Lock()
		s.active = nil
		s.mu.Unlock()
		done <- err
	}()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		s.logger.Info("download cancelled", "url", url)
		s.CancelActive()
		waitErr = <-done
	}

	if waitErr != nil {
		s.logger.Warn("download failed", "url", url, "error", waitErr, "elapsed", time.Since(started))
		return &domain.DownloadError{URL: url, Err: domain.ErrDownloadFailed}
	}

	s.logger.Info("download finished", "url", url, "output", path, "elapsed", time.Since(started))
	return nil
}

// CancelActive interrupts the running child, if any. The child is signalled
// at most once however often this is called. It does not wait.
func (s *Supervisor) CancelActive() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || s.active.Process == nil || s.signalled {
		return
	}
	s.signalled = true

	p := s.active.Process
	if runtime.GOOS == "windows" {
		// No SIGINT delivery to a child on Windows.
		if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.logger.Warn("kill child", "pid", p.Pid, "error", err)
		}
		return
	}
	if err := p.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger.Warn("interrupt child", "pid", p.Pid, "error", err)
	}
}

// KillActive kills the running child, if any. Only an explicit operator
// request (a second interrupt) ends up here.
func (s *Supervisor) KillActive() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || s.active.Process == nil {
		return
	}
	p := s.active.Process
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger.Warn("kill child", "pid", p.Pid, "error", err)
	}
}
