// Package store handles SQLite persistence.
//
// The database is a small key-value table holding JSON documents, plus a
// revision counter bumped by every write so that other processes sharing the
// file can notice changes.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/verte-zerg/tuifeed/internal/logging"
	"github.com/verte-zerg/tuifeed/internal/store/migrations"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for tracker state.
type Store struct {
	db  *sql.DB
	log logging.Logger

	// mu serializes writes with the watcher's revision check so that our
	// own writes are never reported as external changes.
	mu   sync.Mutex
	seen int64
}

// gooseUpContext is a seam for testing migration failures.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Open opens or creates the SQLite database and applies migrations.
func Open(ctx context.Context, path string, log logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Discard()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db, log: log.With("component", "store")}
	if err := store.migrate(ctx); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	rev, err := store.Revision(ctx)
	if err != nil {
		if cerr := db.Close(); cerr != nil {
			_ = cerr
		}
		return nil, err
	}
	store.seen = rev
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := gooseUpContext(ctx, s.db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Get returns the raw value for key, or nil, nil when the key is absent.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

// Set upserts key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.write(ctx, func(ctx context.Context, tx DBTX) error {
		return setKey(ctx, tx, key, value)
	})
}

// SetMany upserts several keys in one transaction. A nil value deletes its key.
func (s *Store) SetMany(ctx context.Context, values map[string][]byte) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return s.write(ctx, func(ctx context.Context, tx DBTX) error {
		for _, k := range keys {
			if values[k] == nil {
				if err := deleteKey(ctx, tx, k); err != nil {
					return err
				}
				continue
			}
			if err := setKey(ctx, tx, k, values[k]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.write(ctx, func(ctx context.Context, tx DBTX) error {
		return deleteKey(ctx, tx, key)
	})
}

// Clear removes every key.
func (s *Store) Clear(ctx context.Context) error {
	return s.write(ctx, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv`); err != nil {
			return fmt.Errorf("failed to clear store: %w", err)
		}
		return nil
	})
}

// List returns every key and value.
func (s *Store) List(ctx context.Context) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM kv`)
	if err != nil {
		return nil, fmt.Errorf("failed to list store: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	result := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan store row: %w", err)
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate store rows: %w", err)
	}
	return result, nil
}

// Revision returns the current write counter.
func (s *Store) Revision(ctx context.Context) (int64, error) {
	var rev int64
	if err := s.db.QueryRowContext(ctx, `SELECT value FROM revision WHERE id = 1`).Scan(&rev); err != nil {
		return 0, fmt.Errorf("failed to read revision: %w", err)
	}
	return rev, nil
}

func (s *Store) write(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rev int64
	err := WithTx(ctx, s.db, nil, func(ctx context.Context, tx DBTX) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		row := tx.QueryRowContext(ctx, `UPDATE revision SET value = value + 1 WHERE id = 1 RETURNING value`)
		if err := row.Scan(&rev); err != nil {
			return fmt.Errorf("failed to bump revision: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	// An external write in between leaves a gap for the watcher to report.
	if rev == s.seen+1 {
		s.seen = rev
	}
	return nil
}

func setKey(ctx context.Context, tx DBTX, key string, value []byte) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func deleteKey(ctx context.Context, tx DBTX, key string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
