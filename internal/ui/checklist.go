package ui

import (
	"context"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/iconidentify/vodgrab/internal/domain"
)

// DownloadedMarker is appended to candidates already in the ledger.
const DownloadedMarker = "Downloaded"

// checklist is the selection state behind the checklist screen.
type checklist struct {
	items   []domain.Candidate
	checked []bool
}

func newChecklist(items []domain.Candidate) *checklist {
	return &checklist{
		items:   items,
		checked: make([]bool, len(items)),
	}
}

// toggle flips row i. Downloaded rows cannot be checked.
func (c *checklist) toggle(i int) bool {
	if i < 0 || i >= len(c.items) || c.items[i].Downloaded {
		return false
	}
	c.checked[i] = !c.checked[i]
	return true
}

// toggleAll checks every selectable row, or clears them all if they were
// already all checked.
func (c *checklist) toggleAll() {
	all := true
	for i, item := range c.items {
		if !item.Downloaded && !c.checked[i] {
			all = false
			break
		}
	}
	for i, item := range c.items {
		if !item.Downloaded {
			c.checked[i] = !all
		}
	}
}

func (c *checklist) selected() []domain.VideoID {
	var ids []domain.VideoID
	for i, item := range c.items {
		if c.checked[i] && !item.Downloaded {
			ids = append(ids, item.Video.ID)
		}
	}
	return ids
}

func (c *checklist) count() int {
	n := 0
	for i := range c.items {
		if c.checked[i] {
			n++
		}
	}
	return n
}

func (c *checklist) mark(i int) string {
	switch {
	case c.items[i].Downloaded:
		return "[-]"
	case c.checked[i]:
		return "[x]"
	default:
		return "[ ]"
	}
}

func (c *checklist) label(i int) string {
	item := c.items[i]
	if item.Downloaded {
		return fmt.Sprintf("%s (%s)", item.Label, DownloadedMarker)
	}
	return item.Label
}

// ChecklistSelector shows every candidate in a full-screen checklist.
// Space toggles, a toggles all, Enter confirms, Esc or q cancels and
// Ctrl-C interrupts.
type ChecklistSelector struct{}

// NewChecklistSelector creates a checklist selector on the real terminal.
func NewChecklistSelector() *ChecklistSelector {
	return &ChecklistSelector{}
}

// Select runs the checklist until the operator confirms or cancels.
func (s *ChecklistSelector) Select(ctx context.Context, candidates []domain.Candidate) ([]domain.VideoID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cl := newChecklist(candidates)
	app := tview.NewApplication()

	var (
		mu     sync.Mutex
		result []domain.VideoID
		resErr = domain.ErrNoSelection
	)
	settle := func(ids []domain.VideoID, err error) {
		mu.Lock()
		result, resErr = ids, err
		mu.Unlock()
		app.Stop()
	}

	header := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[::b]Select VODs to download")
	header.SetBackgroundColor(tcell.ColorDarkBlue)

	footer := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	footer.SetBackgroundColor(tcell.ColorDarkBlue)
	updateFooter := func() {
		footer.SetText(fmt.Sprintf("[yellow]space[white]:toggle [yellow]a[white]:all [yellow]enter[white]:download (%d) [yellow]esc[white]:cancel", cl.count()))
	}
	updateFooter()

	table := tview.NewTable().
		SetSelectable(true, false)
	render := func(i int) {
		color := tcell.ColorWhite
		if candidates[i].Downloaded {
			color = tcell.ColorGray
		}
		table.SetCell(i, 0, tview.NewTableCell(tview.Escape(cl.mark(i))).SetTextColor(color))
		table.SetCell(i, 1, tview.NewTableCell(tview.Escape(cl.label(i))).SetTextColor(color).SetExpansion(1))
		table.SetCell(i, 2, tview.NewTableCell(humanize.Time(candidates[i].Video.CreatedAt)).SetTextColor(color).SetAlign(tview.AlignRight))
	}
	for i := range candidates {
		render(i)
	}

	table.SetSelectedFunc(func(row, column int) {
		settle(cl.selected(), nil)
	})
	table.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEscape {
			settle(nil, domain.ErrNoSelection)
		}
	})
	table.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() != tcell.KeyRune {
			return event
		}
		switch event.Rune() {
		case ' ':
			row, _ := table.GetSelection()
			if cl.toggle(row) {
				render(row)
				updateFooter()
			}
			return nil
		case 'a':
			cl.toggleAll()
			for i := range candidates {
				render(i)
			}
			updateFooter()
			return nil
		case 'q':
			settle(nil, domain.ErrNoSelection)
			return nil
		}
		return event
	})

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC {
			settle(nil, domain.ErrInterrupted)
			return nil
		}
		return event
	})

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(header, 1, 0, false).
		AddItem(table, 0, 1, true).
		AddItem(footer, 1, 0, false)
	app.SetRoot(layout, true)

	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go func() {
		select {
		case <-ctx.Done():
			mu.Lock()
			result, resErr = nil, ctx.Err()
			mu.Unlock()
			// Queued so it also takes effect if Run has not started yet.
			app.QueueUpdate(app.Stop)
		case <-stopWatch:
		}
	}()

	if err := app.Run(); err != nil {
		return nil, fmt.Errorf("run checklist: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	return result, resErr
}
