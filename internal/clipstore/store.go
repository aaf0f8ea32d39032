package clipstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"heatclip/internal/retry"
)

// Store manages clip persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const sqliteBusyCode = 5

// busyPolicy spreads out writers that collide on the database lock. The
// busy_timeout pragma absorbs most contention; this covers what it misses.
var busyPolicy = retry.Policy{
	Attempts:   5,
	Min:        10 * time.Millisecond,
	Max:        200 * time.Millisecond,
	Multiplier: 10 * time.Millisecond,
}

var (
	// ErrDuplicate reports an insert for a (series, key) pair that already exists.
	ErrDuplicate = errors.New("clip already exists")
	// ErrNotFound reports an update or lookup for a clip that does not exist.
	ErrNotFound = errors.New("clip not found")
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}

// execWithRetry runs a write, retrying only while SQLite reports the
// database as busy.
func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := retry.Do(ctx, busyPolicy, "sqlite write", func(ctx context.Context) error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}, isSQLiteBusy)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the clip database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
