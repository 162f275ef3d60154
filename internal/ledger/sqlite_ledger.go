package ledger

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/iconidentify/vodgrab/internal/domain"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS downloads (
    id            TEXT PRIMARY KEY,
    downloaded_at TEXT NOT NULL
);
`

// SQLiteLedger keeps the ledger in a single SQLite file. Marks are loaded
// into memory on open so lookups never touch the database.
type SQLiteLedger struct {
	path string
	db   *sql.DB
	mu   sync.RWMutex
	ids  map[string]bool
}

// OpenSQLite opens or creates the SQLite ledger at path.
func OpenSQLite(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &domain.LedgerError{Op: "open", Path: path, Err: err}
	}
	// Pragmas below are per connection.
	db.SetMaxOpenConns(1)

	// Rollback journal keeps the ledger a single file between runs.
	pragmas := []string{
		"PRAGMA journal_mode=DELETE",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, &domain.LedgerError{Op: "open", Path: path, Err: fmt.Errorf("setting pragma %q: %w", pragma, err)}
		}
	}

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, &domain.LedgerError{Op: "parse", Path: path, Err: fmt.Errorf("creating schema: %w", err)}
	}

	l := &SQLiteLedger{
		path: path,
		db:   db,
		ids:  make(map[string]bool),
	}
	if err := l.load(); err != nil {
		db.Close()
		return nil, err
	}

	return l, nil
}

func (l *SQLiteLedger) load() error {
	rows, err := l.db.Query("SELECT id FROM downloads")
	if err != nil {
		return &domain.LedgerError{Op: "read", Path: l.path, Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return &domain.LedgerError{Op: "read", Path: l.path, Err: err}
		}
		l.ids[id] = true
	}
	if err := rows.Err(); err != nil {
		return &domain.LedgerError{Op: "read", Path: l.path, Err: err}
	}
	return nil
}

// IsDownloaded reports whether id was marked.
func (l *SQLiteLedger) IsDownloaded(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ids[id]
}

// MarkDownloaded sets id and commits it before returning.
func (l *SQLiteLedger) MarkDownloaded(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ids[id] = true

	_, err := l.db.Exec(
		"INSERT OR IGNORE INTO downloads (id, downloaded_at) VALUES (?, ?)",
		id, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return &domain.LedgerError{Op: "write", Path: l.path, Err: err}
	}
	return nil
}

// Len returns the number of marked ids.
func (l *SQLiteLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ids)
}

// Path returns the database file path.
func (l *SQLiteLedger) Path() string { return l.path }

// Close closes the database connection.
func (l *SQLiteLedger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}
