package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7FDBFF"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00D27A")).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
)

// Progress is a single-line status indicator. On a terminal it spins; in
// plain mode every distinct update is printed on its own line.
type Progress struct {
	out     io.Writer
	animate bool
	frames  []string
	fps     time.Duration

	mu      sync.Mutex
	text    string
	frame   int
	stop    chan struct{}
	stopped chan struct{}
}

func newProgress(out io.Writer, animate bool) *Progress {
	return &Progress{
		out:     out,
		animate: animate,
		frames:  spinner.Dot.Frames,
		fps:     spinner.Dot.FPS,
	}
}

// Update replaces the status text, starting the spinner if needed.
func (p *Progress) Update(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if text == p.text && (p.stop != nil || !p.animate) {
		return
	}
	p.text = text

	if !p.animate {
		fmt.Fprintln(p.out, text)
		return
	}
	p.render()
	if p.stop == nil {
		p.stop = make(chan struct{})
		p.stopped = make(chan struct{})
		go p.spin(p.stop, p.stopped)
	}
}

// Succeed stops the spinner and leaves a success line.
func (p *Progress) Succeed(text string) {
	p.finish(successStyle.Render("✔"), text)
}

// Fail stops the spinner and leaves a failure line.
func (p *Progress) Fail(text string) {
	p.finish(failStyle.Render("✖"), text)
}

// Stop halts the spinner and clears its line.
func (p *Progress) Stop() {
	p.halt()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.animate && p.text != "" {
		fmt.Fprint(p.out, "\r\033[K")
	}
	p.text = ""
}

func (p *Progress) finish(symbol, text string) {
	p.halt()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.animate {
		fmt.Fprintf(p.out, "\r\033[K%s %s\n", symbol, text)
	} else {
		fmt.Fprintln(p.out, text)
	}
	p.text = ""
}

func (p *Progress) halt() {
	p.mu.Lock()
	stop, stopped := p.stop, p.stopped
	p.stop, p.stopped = nil, nil
	p.mu.Unlock()

	if stop != nil {
		close(stop)
		<-stopped
	}
}

func (p *Progress) spin(stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(p.fps)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.mu.Lock()
			p.frame = (p.frame + 1) % len(p.frames)
			p.render()
			p.mu.Unlock()
		}
	}
}

// render must be called with mu held.
func (p *Progress) render() {
	fmt.Fprintf(p.out, "\r\033[K%s %s", spinnerStyle.Render(p.frames[p.frame]), p.text)
}
