package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/iconidentify/vodgrab/internal/domain"
)

// PlainSelector lists candidates as numbered lines and reads one line of
// 1-based indices or ranges such as "1,3,5-7" or "all".
type PlainSelector struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPlainSelector creates a selector reading from in and writing to out.
func NewPlainSelector(in io.Reader, out io.Writer) *PlainSelector {
	return &PlainSelector{in: bufio.NewReader(in), out: out}
}

// Select prints the list, reads the answer and returns the chosen IDs in
// list order. An empty line or end of input selects nothing.
func (s *PlainSelector) Select(ctx context.Context, candidates []domain.Candidate) ([]domain.VideoID, error) {
	for i, c := range candidates {
		label := c.Label
		if c.Downloaded {
			label = fmt.Sprintf("%s (%s)", label, DownloadedMarker)
		}
		fmt.Fprintf(s.out, "%3d) %s  [%s]\n", i+1, label, humanize.Time(c.Video.CreatedAt))
	}
	fmt.Fprint(s.out, "Select VODs to download (e.g. 1,3,5-7 or all): ")

	line, err := s.readLine(ctx)
	if err != nil {
		return nil, err
	}

	indices, err := parseSelection(line, len(candidates))
	if err != nil {
		return nil, err
	}

	var ids []domain.VideoID
	for _, i := range indices {
		c := candidates[i]
		if c.Downloaded {
			if !isAll(line) {
				fmt.Fprintf(s.out, "Skipping %d, already downloaded: %s\n", i+1, c.Label)
			}
			continue
		}
		ids = append(ids, c.Video.ID)
	}
	return ids, nil
}

func (s *PlainSelector) readLine(ctx context.Context) (string, error) {
	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := s.in.ReadString('\n')
		ch <- answer{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case a := <-ch:
		if a.err != nil && !errors.Is(a.err, io.EOF) {
			return "", fmt.Errorf("read selection: %w", a.err)
		}
		return strings.TrimSpace(a.line), nil
	}
}

func isAll(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), "all")
}

// parseSelection turns "1,3,5-7" into sorted, de-duplicated 0-based
// indices below n.
func parseSelection(line string, n int) ([]int, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}
	if isAll(line) {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	seen := make(map[int]bool)
	fields := strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	for _, field := range fields {
		lo, hi, err := parseRange(field)
		if err != nil {
			return nil, err
		}
		if lo < 1 || hi > n || lo > hi {
			return nil, fmt.Errorf("selection %q out of range 1-%d", field, n)
		}
		for i := lo; i <= hi; i++ {
			seen[i-1] = true
		}
	}

	indices := make([]int, 0, len(seen))
	for i := range seen {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices, nil
}

func parseRange(field string) (int, int, error) {
	from, to, isRange := strings.Cut(field, "-")
	lo, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid selection %q", field)
	}
	if !isRange {
		return lo, lo, nil
	}
	hi, err := strconv.Atoi(strings.TrimSpace(to))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid selection %q", field)
	}
	return lo, hi, nil
}
