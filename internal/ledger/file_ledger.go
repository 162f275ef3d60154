package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/iconidentify/vodgrab/internal/domain"
)

// FileLedger stores the ledger as a flat JSON object {"<id>": true}.
type FileLedger struct {
	path string
	mu   sync.RWMutex
	ids  map[string]bool
}

// Open loads the ledger at path, creating an empty one if none exists.
func Open(path string) (*FileLedger, error) {
	l := &FileLedger{
		path: path,
		ids:  make(map[string]bool),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, &domain.LedgerError{Op: "read", Path: path, Err: err}
		}
		if err := l.save(); err != nil {
			return nil, err
		}
		return l, nil
	}

	if err := json.Unmarshal(data, &l.ids); err != nil {
		return nil, &domain.LedgerError{Op: "parse", Path: path, Err: err}
	}
	if l.ids == nil {
		// The file held a JSON null.
		l.ids = make(map[string]bool)
	}

	return l, nil
}

// IsDownloaded reports whether id was marked.
func (l *FileLedger) IsDownloaded(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ids[id]
}

// MarkDownloaded sets id and rewrites the file.
func (l *FileLedger) MarkDownloaded(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ids[id] = true
	return l.save()
}

// Len returns the number of marked ids.
func (l *FileLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := 0
	for _, ok := range l.ids {
		if ok {
			n++
		}
	}
	return n
}

// Path returns the ledger file path.
func (l *FileLedger) Path() string { return l.path }

// Close is a no-op; every mark is already on disk.
func (l *FileLedger) Close() error { return nil }

// save writes the whole map atomically via a temp file in the same
// directory. Callers hold l.mu.
func (l *FileLedger) save() error {
	data, err := json.Marshal(l.ids)
	if err != nil {
		return &domain.LedgerError{Op: "encode", Path: l.path, Err: err}
	}

	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return &domain.LedgerError{Op: "write", Path: l.path, Err: err}
	}
	tempPath := tmp.Name()

	if err := writeAndSync(tmp, data); err != nil {
		os.Remove(tempPath)
		return &domain.LedgerError{Op: "write", Path: l.path, Err: err}
	}

	if err := os.Rename(tempPath, l.path); err != nil {
		os.Remove(tempPath)
		return &domain.LedgerError{Op: "write", Path: l.path, Err: fmt.Errorf("replace: %w", err)}
	}

	return nil
}

func writeAndSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
