package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iconidentify/vodgrab/internal/domain"
	"github.com/iconidentify/vodgrab/internal/ledger"
	"github.com/iconidentify/vodgrab/pkg/twitch"
	"github.com/iconidentify/vodgrab/pkg/twitch/twitchtest"
)

type download struct {
	URL      string
	Dir      string
	FileName string
}

type fakeDownloader struct {
	mu         sync.Mutex
	calls      []download
	cancels    int
	missing    bool
	onDownload func(n int) error
}

func (d *fakeDownloader) EnsureAvailable() error {
	if d.missing {
		return &domain.NotFoundError{Kind: "binary", Name: "streamlink"}
	}
	return nil
}

func (d *fakeDownloader) Download(ctx context.Context, url, dir, fileName string) error {
	d.mu.Lock()
	d.calls = append(d.calls, download{url, dir, fileName})
	n := len(d.calls)
	fn := d.onDownload
	d.mu.Unlock()
	if fn != nil {
		return fn(n)
	}
	return nil
}

func (d *fakeDownloader) CancelActive() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancels++
}

type fakeSelector struct {
	pick  func([]domain.Candidate) []domain.VideoID
	err   error
	seen  []domain.Candidate
	calls int
}

func (s *fakeSelector) Select(ctx context.Context, candidates []domain.Candidate) ([]domain.VideoID, error) {
	s.calls++
	s.seen = candidates
	if s.err != nil {
		return nil, s.err
	}
	if s.pick == nil {
		return nil, nil
	}
	return s.pick(candidates), nil
}

func pickIDs(ids ...domain.VideoID) func([]domain.Candidate) []domain.VideoID {
	return func([]domain.Candidate) []domain.VideoID { return ids }
}

type recordingProgress struct {
	mu        sync.Mutex
	lines     []string
	failures  []string
	onSucceed func(text string)
}

func (p *recordingProgress) add(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = append(p.lines, s)
}

func (p *recordingProgress) Update(text string) { p.add(text) }
func (p *recordingProgress) Stop()              {}

func (p *recordingProgress) Succeed(text string) {
	p.add(text)
	if p.onSucceed != nil {
		p.onSucceed(text)
	}
}

func (p *recordingProgress) Fail(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = append(p.failures, text)
}

func (p *recordingProgress) failed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.failures...)
}

func (p *recordingProgress) contains(text string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, l := range p.lines {
		if l == text {
			return true
		}
	}
	return false
}

type fixture struct {
	srv        *twitchtest.Server
	dir        string
	downloader *fakeDownloader
	selector   *fakeSelector
	progress   *recordingProgress
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := twitchtest.NewServer()
	t.Cleanup(srv.Close)

	srv.AddUser(twitchtest.User{ID: "42", Login: "somechannel", DisplayName: "SomeChannel"})
	created := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	srv.AddVideos("42",
		twitchtest.Video{ID: "1001", UserID: "42", UserName: "SomeChannel", Title: "Part 1/2", CreatedAt: created, Duration: "2h"},
		twitchtest.Video{ID: "1000", UserID: "42", UserName: "SomeChannel", Title: "Older", CreatedAt: created.AddDate(0, 0, -1), Duration: "1h"},
	)

	return &fixture{
		srv:        srv,
		dir:        t.TempDir(),
		downloader: &fakeDownloader{},
		selector:   &fakeSelector{},
		progress:   &recordingProgress{},
	}
}

func (f *fixture) runner(t *testing.T) *Runner {
	t.Helper()
	client, err := twitch.NewClient(twitch.Config{
		ClientID:     twitchtest.ClientID,
		ClientSecret: twitchtest.ClientSecret,
		BaseURL:      f.srv.BaseURL(),
		AuthURL:      f.srv.AuthURL(),
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRunner(client, f.downloader, f.selector, f.progress, Options{DownloadDir: f.dir}, logger)
}

func (f *fixture) ledger(t *testing.T) ledger.Ledger {
	t.Helper()
	l, err := ledger.New(ledger.BackendJSON, f.dir)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRun_DownloadsSelectionAndMarks(t *testing.T) {
	f := newFixture(t)
	f.selector.pick = pickIDs("1001", "1000")
	r := f.runner(t)

	if err := r.Run(context.Background(), "somechannel"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if r.Phase() != PhaseDone {
		t.Errorf("Phase() = %v, want %v", r.Phase(), PhaseDone)
	}

	if len(f.downloader.calls) != 2 {
		t.Fatalf("downloads = %d, want 2", len(f.downloader.calls))
	}
	first := f.downloader.calls[0]
	if first.URL != "https://www.twitch.tv/videos/1001" {
		t.Errorf("URL = %q, want fallback playable URL", first.URL)
	}
	if first.Dir != f.dir {
		t.Errorf("Dir = %q, want %q", first.Dir, f.dir)
	}
	wantName := "1001 - SomeChannel - " + time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC).Local().Format("2006-01-02") + ".mp4"
	if first.FileName != wantName {
		t.Errorf("FileName = %q, want %q", first.FileName, wantName)
	}

	l := f.ledger(t)
	for _, id := range []string{"1001", "1000"} {
		if !l.IsDownloaded(id) {
			t.Errorf("IsDownloaded(%q) = false after run", id)
		}
	}

	for _, text := range []string{"Starting application", "Fetching channel information", "Fetching VODs list"} {
		if !f.progress.contains(text) {
			t.Errorf("progress missing %q", text)
		}
	}
}

func TestRun_LabelsCandidates(t *testing.T) {
	f := newFixture(t)
	r := f.runner(t)

	if err := r.Run(context.Background(), "somechannel"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(f.selector.seen) != 2 {
		t.Fatalf("candidates = %d, want 2", len(f.selector.seen))
	}
	c := f.selector.seen[0]
	want := "Part 1/2 - " + c.Video.FormatDate("") + " - 2h"
	if c.Label != want {
		t.Errorf("Label = %q, want %q", c.Label, want)
	}
}

func TestRun_EmptySelection(t *testing.T) {
	f := newFixture(t)
	r := f.runner(t)

	err := r.Run(context.Background(), "somechannel")
	if err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if ExitCode(err) != ExitOK {
		t.Errorf("ExitCode = %d, want %d", ExitCode(err), ExitOK)
	}
	if len(f.downloader.calls) != 0 {
		t.Errorf("downloads = %d, want 0", len(f.downloader.calls))
	}
	if !f.progress.contains("No VODs selected.") {
		t.Error("progress should report that nothing was selected")
	}
}

func TestRun_SelectorCancelled(t *testing.T) {
	f := newFixture(t)
	f.selector.err = domain.ErrNoSelection
	r := f.runner(t)

	if err := r.Run(context.Background(), "somechannel"); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if len(f.downloader.calls) != 0 {
		t.Errorf("downloads = %d, want 0", len(f.downloader.calls))
	}
}

func TestRun_SelectorInterrupted(t *testing.T) {
	f := newFixture(t)
	f.selector.err = domain.ErrInterrupted
	r := f.runner(t)

	err := r.Run(context.Background(), "somechannel")
	if ExitCode(err) != ExitInterrupted {
		t.Errorf("Run() = %v, want exit %d", err, ExitInterrupted)
	}
}

func TestRun_UnknownChannel(t *testing.T) {
	f := newFixture(t)
	r := f.runner(t)

	err := r.Run(context.Background(), "nobody")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Run() = %v, want ErrNotFound", err)
	}
	if f.srv.Calls("videos") != 0 {
		t.Error("videos should not be listed for an unknown channel")
	}
	if f.selector.calls != 0 {
		t.Error("selector should not be shown")
	}
	if r.Phase() != PhaseFailed {
		t.Errorf("Phase() = %v, want %v", r.Phase(), PhaseFailed)
	}
	if ExitCode(err) != ExitError {
		t.Errorf("ExitCode = %d, want %d", ExitCode(err), ExitError)
	}
	if got := f.progress.failed(); len(got) != 1 || got[0] != "Fetching channel information" {
		t.Errorf("progress failures = %q, want [Fetching channel information]", got)
	}
}

func TestRun_NoVideos(t *testing.T) {
	f := newFixture(t)
	f.srv.AddUser(twitchtest.User{ID: "7", Login: "quiet"})
	r := f.runner(t)

	err := r.Run(context.Background(), "quiet")
	if !errors.Is(err, domain.ErrNoVideos) {
		t.Fatalf("Run() = %v, want ErrNoVideos", err)
	}
	if f.selector.calls != 0 || len(f.downloader.calls) != 0 {
		t.Error("nothing should be selected or downloaded")
	}
}

func TestRun_AuthFailure(t *testing.T) {
	f := newFixture(t)
	f.srv.FailToken(http.StatusBadRequest)
	r := f.runner(t)

	err := r.Run(context.Background(), "somechannel")
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Run() = %v, want *domain.AuthError", err)
	}
}

func TestRun_MissingBinary(t *testing.T) {
	f := newFixture(t)
	f.downloader.missing = true
	r := f.runner(t)

	err := r.Run(context.Background(), "somechannel")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Run() = %v, want ErrNotFound", err)
	}
	if f.srv.Calls("users") != 0 {
		t.Error("no network call should happen before the preflight passes")
	}
}

func TestRun_DownloadDirMissing(t *testing.T) {
	f := newFixture(t)
	f.dir = filepath.Join(f.dir, "missing")
	r := f.runner(t)

	err := r.Run(context.Background(), "somechannel")
	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Run() = %v, want *domain.ConfigError", err)
	}
}

func TestRun_DownloadFailureStopsQueue(t *testing.T) {
	f := newFixture(t)
	f.selector.pick = pickIDs("1001", "1000")
	f.downloader.onDownload = func(n int) error {
		return &domain.DownloadError{URL: "u", Err: domain.ErrDownloadFailed}
	}
	r := f.runner(t)

	err := r.Run(context.Background(), "somechannel")
	if !errors.Is(err, domain.ErrDownloadFailed) {
		t.Fatalf("Run() = %v, want ErrDownloadFailed", err)
	}
	if len(f.downloader.calls) != 1 {
		t.Errorf("downloads = %d, want 1", len(f.downloader.calls))
	}
	if f.ledger(t).IsDownloaded("1001") {
		t.Error("failed download must not be marked")
	}
	got := f.progress.failed()
	if len(got) != 1 || !strings.HasPrefix(got[0], "Downloading VOD: Part 1/2 - ") {
		t.Errorf("progress failures = %q, want the download status", got)
	}
}

func TestRun_InterruptDuringDownload(t *testing.T) {
	f := newFixture(t)
	f.selector.pick = pickIDs("1001", "1000")
	r := f.runner(t)

	// The child honours the interrupt and still exits 0.
	f.downloader.onDownload = func(n int) error {
		r.Interrupt()
		return nil
	}

	err := r.Run(context.Background(), "somechannel")
	if !errors.Is(err, domain.ErrInterrupted) {
		t.Fatalf("Run() = %v, want ErrInterrupted", err)
	}
	if ExitCode(err) != ExitInterrupted {
		t.Errorf("ExitCode = %d, want %d", ExitCode(err), ExitInterrupted)
	}
	if len(f.downloader.calls) != 1 {
		t.Errorf("downloads = %d, want 1", len(f.downloader.calls))
	}
	if f.downloader.cancels != 1 {
		t.Errorf("CancelActive calls = %d, want 1", f.downloader.cancels)
	}
	if f.ledger(t).IsDownloaded("1001") {
		t.Error("interrupted download must not be marked")
	}
}

func TestRun_InterruptBetweenItems(t *testing.T) {
	f := newFixture(t)
	f.selector.pick = pickIDs("1001", "1000")
	r := f.runner(t)

	// The signal lands after the first item finished and was recorded.
	f.progress.onSucceed = func(text string) {
		if strings.HasPrefix(text, "Downloaded VOD:") {
			r.Interrupt()
		}
	}

	err := r.Run(context.Background(), "somechannel")
	if !errors.Is(err, domain.ErrInterrupted) {
		t.Fatalf("Run() = %v, want ErrInterrupted", err)
	}
	if len(f.downloader.calls) != 1 {
		t.Errorf("downloads = %d, want 1", len(f.downloader.calls))
	}

	l := f.ledger(t)
	if !l.IsDownloaded("1001") {
		t.Error("the finished item should stay recorded")
	}
	if l.IsDownloaded("1000") {
		t.Error("the queued item must not be recorded")
	}
	if got := f.progress.failed(); len(got) != 0 {
		t.Errorf("an interrupt is not a failure, got %q", got)
	}
}

func TestRun_InterruptDuringSelection(t *testing.T) {
	f := newFixture(t)
	r := f.runner(t)
	f.selector.pick = func([]domain.Candidate) []domain.VideoID {
		r.Interrupt()
		return []domain.VideoID{"1001"}
	}

	err := r.Run(context.Background(), "somechannel")
	if !errors.Is(err, domain.ErrInterrupted) {
		t.Fatalf("Run() = %v, want ErrInterrupted", err)
	}
	if len(f.downloader.calls) != 0 {
		t.Errorf("downloads = %d, want 0", len(f.downloader.calls))
	}
}

func TestRun_InterruptBeforeRun(t *testing.T) {
	f := newFixture(t)
	r := f.runner(t)
	r.Interrupt()

	if err := r.Run(context.Background(), "somechannel"); !errors.Is(err, domain.ErrInterrupted) {
		t.Fatalf("Run() = %v, want ErrInterrupted", err)
	}
	if f.srv.Calls("token") != 0 {
		t.Error("no network call should happen after an interrupt")
	}
}

func TestRun_LedgerFlagsNextPrompt(t *testing.T) {
	f := newFixture(t)
	f.selector.pick = pickIDs("1001")
	if err := f.runner(t).Run(context.Background(), "somechannel"); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	second := &fakeSelector{}
	f.selector = second
	if err := f.runner(t).Run(context.Background(), "somechannel"); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if len(second.seen) != 2 {
		t.Fatalf("candidates = %d, want 2", len(second.seen))
	}
	for _, c := range second.seen {
		want := c.Video.ID == "1001"
		if c.Downloaded != want {
			t.Errorf("candidate %s Downloaded = %v, want %v", c.Video.ID, c.Downloaded, want)
		}
	}
}

func TestRun_LedgerWriteFailureIsFatal(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced")
	}
	f := newFixture(t)
	f.selector.pick = pickIDs("1001", "1000")
	f.downloader.onDownload = func(n int) error {
		// Leave the ledger unwritable once the download is done.
		return os.Chmod(f.dir, 0500)
	}
	t.Cleanup(func() { os.Chmod(f.dir, 0755) })
	r := f.runner(t)

	err := r.Run(context.Background(), "somechannel")
	var ledgerErr *domain.LedgerError
	if !errors.As(err, &ledgerErr) {
		t.Fatalf("Run() = %v, want *domain.LedgerError", err)
	}
	if len(f.downloader.calls) != 1 {
		t.Errorf("downloads = %d, want 1", len(f.downloader.calls))
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{domain.ErrInterrupted, ExitInterrupted},
		{errors.Join(errors.New("x"), domain.ErrInterrupted), ExitInterrupted},
		{domain.ErrNoVideos, ExitError},
		{&domain.ConfigError{Key: "k", Msg: "m"}, ExitError},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestPhase_String(t *testing.T) {
	if PhaseAwaitingSelection.String() != "awaiting_selection" {
		t.Errorf("String() = %q", PhaseAwaitingSelection.String())
	}
	if Phase(99).String() != "unknown" {
		t.Errorf("String() = %q, want unknown", Phase(99).String())
	}
}
