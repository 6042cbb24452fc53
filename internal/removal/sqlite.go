package removal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"
)

// SQLite is a removal index backed by a SQLite database. Lookups are served
// from an in-memory set loaded during Init; writes update the set
// synchronously and persist in the background.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
	writes sync.WaitGroup

	mu      sync.RWMutex
	removed map[string]struct{}
}

// SQLiteOption configures a SQLite store.
type SQLiteOption func(*SQLite)

// WithLogger sets the store's logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) SQLiteOption {
	return func(s *SQLite) {
		s.logger = l
	}
}

// NewSQLite opens (creating if needed) the removal database at path.
func NewSQLite(path string, opts ...SQLiteOption) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create removal db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open removal db: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS removed_items (
			key        TEXT PRIMARY KEY,
			removed_at INTEGER NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create removed_items table: %w", err)
	}

	s := &SQLite{
		db:      db,
		logger:  zap.NewNop(),
		removed: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Init loads the removed keys on a new goroutine, then signals ready. A
// load failure is logged and the store comes up empty rather than blocking
// the suggestion surface forever.
func (s *SQLite) Init(onReady func()) {
	go func() {
		keys, err := s.loadKeys()
		if err != nil {
			s.logger.Warn("removal index load failed, starting empty", zap.Error(err))
		}

		s.mu.Lock()
		for _, k := range keys {
			s.removed[k] = struct{}{}
		}
		s.mu.Unlock()

		s.logger.Info("removal index ready", zap.Int("keys", len(keys)))
		onReady()
	}()
}

func (s *SQLite) loadKeys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM removed_items`)
	if err != nil {
		return nil, fmt.Errorf("failed to query removed keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return keys, fmt.Errorf("failed to scan removed key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// IsRemoved reports whether the key has been recorded as removed.
func (s *SQLite) IsRemoved(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.removed[key]
	return ok
}

// RecordRemoved adds the key to the in-memory set and persists it in the
// background. Persistence failures are logged; the in-memory removal still
// holds for the life of the process.
func (s *SQLite) RecordRemoved(key string) {
	s.mu.Lock()
	s.removed[key] = struct{}{}
	s.mu.Unlock()

	s.writes.Add(1)
	go func() {
		defer s.writes.Done()
		_, err := s.db.Exec(
			`INSERT OR REPLACE INTO removed_items (key, removed_at) VALUES (?, ?)`,
			key, time.Now().Unix(),
		)
		if err != nil {
			s.logger.Warn("failed to persist removed key", zap.String("key", key), zap.Error(err))
		}
	}()
}

// Close waits for in-flight writes and closes the underlying database.
func (s *SQLite) Close() error {
	s.writes.Wait()
	return s.db.Close()
}
