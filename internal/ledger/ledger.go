// Package ledger records which VODs were downloaded so later runs can skip
// them. The ledger only grows: ids are marked, never cleared.
package ledger

import (
	"fmt"
	"path/filepath"
)

// Ledger is the dedup store used by the runner.
type Ledger interface {
	// IsDownloaded reports whether id was marked. Unknown ids are false.
	IsDownloaded(id string) bool
	// MarkDownloaded sets id and persists the whole ledger before returning.
	// On a persistence error the in-memory flag stays set.
	MarkDownloaded(id string) error
	// Len returns the number of marked ids.
	Len() int
	// Path returns the backing file.
	Path() string
	Close() error
}

// Backend names accepted by New.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// File names inside the download directory.
const (
	JSONFileName   = ".metadata"
	SQLiteFileName = ".metadata.db"
)

// New opens the ledger for backend inside dir.
func New(backend, dir string) (Ledger, error) {
	switch backend {
	case "", BackendJSON:
		return Open(filepath.Join(dir, JSONFileName))
	case BackendSQLite:
		return OpenSQLite(filepath.Join(dir, SQLiteFileName))
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", backend)
	}
}
