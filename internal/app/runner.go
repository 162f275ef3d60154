// Package app drives a single download session: resolve the channel, list
// its past broadcasts, let the operator choose, then download one by one.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/iconidentify/vodgrab/internal/config"
	"github.com/iconidentify/vodgrab/internal/domain"
	"github.com/iconidentify/vodgrab/internal/ledger"
	"github.com/iconidentify/vodgrab/internal/platform"
	"github.com/iconidentify/vodgrab/internal/ui"
)

// VideoSource looks channels and their archived videos up.
type VideoSource interface {
	ResolveUser(ctx context.Context, login string) (*domain.User, error)
	ListArchivedVideos(ctx context.Context, userID string) ([]domain.Video, error)
}

// Downloader fetches one video at a time.
type Downloader interface {
	EnsureAvailable() error
	Download(ctx context.Context, url, outputDir, fileName string) error
	CancelActive()
}

// Progress reports what the run is doing.
type Progress interface {
	Update(text string)
	Succeed(text string)
	Fail(text string)
	Stop()
}

// Options are the per-run settings taken from configuration.
type Options struct {
	DownloadDir   string
	DateLayout    string
	Extension     string
	LedgerBackend string
}

// Runner executes runs. Interrupt may be called from any goroutine.
type Runner struct {
	source     VideoSource
	downloader Downloader
	selector   ui.Selector
	progress   Progress
	opts       Options
	logger     *slog.Logger

	interrupted atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	phase  Phase

	// Last text sent to progress, reused for the failure line.
	status string
}

// NewRunner creates a new runner.
func NewRunner(source VideoSource, downloader Downloader, selector ui.Selector, progress Progress, opts Options, logger *slog.Logger) *Runner {
	if opts.DateLayout == "" {
		opts.DateLayout = domain.DefaultDateLayout
	}
	if opts.Extension == "" {
		opts.Extension = domain.DefaultExtension
	}
	if opts.LedgerBackend == "" {
		opts.LedgerBackend = ledger.BackendJSON
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		source:     source,
		downloader: downloader,
		selector:   selector,
		progress:   progress,
		opts:       opts,
		logger:     logger.With("component", "runner"),
	}
}

// Interrupt stops the run: the active download is signalled and nothing
// further is started or recorded. It only flips state and sends signals.
func (r *Runner) Interrupt() {
	r.interrupted.Store(true)
	r.downloader.CancelActive()

	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Phase returns the current phase.
func (r *Runner) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

func (r *Runner) update(text string) {
	r.status = text
	r.progress.Update(text)
}

func (r *Runner) setPhase(p Phase, logger *slog.Logger) {
	r.mu.Lock()
	r.phase = p
	r.mu.Unlock()
	logger.Debug("phase", "phase", p.String())
}

// Run performs one session for channel. It returns nil when downloads
// completed or nothing was selected, domain.ErrInterrupted after
// Interrupt, and the first failure otherwise.
func (r *Runner) Run(ctx context.Context, channel string) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	logger := r.logger.With("run_id", uuid.NewString(), "channel", channel)

	defer func() {
		err = r.finish(err, logger)
	}()
	if r.interrupted.Load() {
		return domain.ErrInterrupted
	}

	r.setPhase(PhaseInit, logger)
	r.update("Starting application")

	if err := checkDir(r.opts.DownloadDir); err != nil {
		return err
	}
	l, err := ledger.New(r.opts.LedgerBackend, r.opts.DownloadDir)
	if err != nil {
		return err
	}
	defer l.Close()
	logger.Debug("ledger loaded", "path", l.Path(), "entries", l.Len())

	if err := r.downloader.EnsureAvailable(); err != nil {
		return err
	}
	if free, err := platform.FreeDiskSpace(r.opts.DownloadDir); err == nil {
		logger.Info("download directory", "path", r.opts.DownloadDir, "free", humanize.IBytes(free))
	} else {
		logger.Debug("free disk space unavailable", "error", err)
	}

	r.setPhase(PhaseResolvingUser, logger)
	r.update("Fetching channel information")
	user, err := r.source.ResolveUser(ctx, channel)
	if err != nil {
		return err
	}

	r.setPhase(PhaseListingVideos, logger)
	r.update("Fetching VODs list")
	videos, err := r.source.ListArchivedVideos(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(videos) == 0 {
		return domain.ErrNoVideos
	}
	logger.Info("videos listed", "user_id", user.ID, "count", len(videos))

	r.setPhase(PhaseAwaitingSelection, logger)
	r.progress.Stop()
	candidates := r.candidates(videos, l)
	ids, err := r.selector.Select(ctx, candidates)
	if err != nil && !errors.Is(err, domain.ErrNoSelection) {
		return err
	}
	if len(ids) == 0 {
		r.progress.Succeed("No VODs selected.")
		r.setPhase(PhaseDone, logger)
		return nil
	}

	r.setPhase(PhaseDownloading, logger)
	byID := make(map[domain.VideoID]*domain.Video, len(videos))
	for i := range videos {
		byID[videos[i].ID] = &videos[i]
	}
	queue := make([]*domain.Video, 0, len(ids))
	var total time.Duration
	for _, id := range ids {
		v, ok := byID[id]
		if !ok {
			return fmt.Errorf("selected unknown video %s", id)
		}
		queue = append(queue, v)
		if d, err := v.ParseDuration(); err == nil {
			total += d
		}
	}
	logger.Info("download queue", "count", len(queue), "total_duration", total)

	for _, v := range queue {
		// An interrupt between two items leaves the rest of the queue alone.
		if r.interrupted.Load() || ctx.Err() != nil {
			return domain.ErrInterrupted
		}
		if err := r.download(ctx, v, l, logger); err != nil {
			return err
		}
	}

	r.setPhase(PhaseDone, logger)
	return nil
}

func (r *Runner) download(ctx context.Context, v *domain.Video, l ledger.Ledger, logger *slog.Logger) error {
	desc := fmt.Sprintf("%s - %s", v.Title, v.FormatDate(r.opts.DateLayout))
	r.update("Downloading VOD: " + desc)
	logger.Info("downloading", "video_id", v.ID, "title", v.Title)

	err := r.downloader.Download(ctx, v.PlayableURL(), r.opts.DownloadDir, v.FileName(r.opts.DateLayout, r.opts.Extension))
	if r.interrupted.Load() {
		// The child may still have exited 0; an interrupted file is
		// never recorded.
		return domain.ErrInterrupted
	}
	if err != nil {
		return err
	}

	if err := l.MarkDownloaded(v.ID.String()); err != nil {
		return err
	}
	r.progress.Succeed("Downloaded VOD: " + desc)
	return nil
}

func (r *Runner) candidates(videos []domain.Video, l ledger.Ledger) []domain.Candidate {
	out := make([]domain.Candidate, len(videos))
	for i := range videos {
		out[i] = domain.Candidate{
			Video:      videos[i],
			Label:      domain.Label(&videos[i], r.opts.DateLayout),
			Downloaded: l.IsDownloaded(videos[i].ID.String()),
		}
	}
	return out
}

func (r *Runner) finish(err error, logger *slog.Logger) error {
	if err == nil {
		return nil
	}
	if r.interrupted.Load() || errors.Is(err, domain.ErrInterrupted) {
		err = domain.ErrInterrupted
	}

	r.setPhase(PhaseFailed, logger)
	if errors.Is(err, domain.ErrInterrupted) {
		r.progress.Stop()
		logger.Info("run interrupted")
	} else {
		status := r.status
		if status == "" {
			status = "Failed"
		}
		r.progress.Fail(status)
		logger.Debug("run failed", "error", err)
	}
	return err
}

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return &domain.ConfigError{Key: config.KeyDownloadPath, Msg: fmt.Sprintf("download directory %s is not accessible", dir)}
	}
	if !info.IsDir() {
		return &domain.ConfigError{Key: config.KeyDownloadPath, Msg: fmt.Sprintf("download path %s is not a directory", dir)}
	}
	return nil
}
