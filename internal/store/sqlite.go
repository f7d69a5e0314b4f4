package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"outreach/internal/logging"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	path   string
	logCap int
}

// NewSQLiteStore opens (or creates) the database at path.
// Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string, logCap int) (*SQLiteStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewSQLiteStore")
	defer timer.Stop()

	logging.Store("Initializing SQLiteStore at path: %s", path)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.StoreError("Failed to create directory %s: %v", dir, err)
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		logging.StoreError("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	s := &SQLiteStore{db: db, path: path, logCap: capOrDefault(logCap)}
	if err := s.initialize(); err != nil {
		logging.StoreError("Failed to initialize schema: %v", err)
		db.Close()
		return nil, err
	}
	logging.Store("SQLiteStore ready (log cap %d)", s.logCap)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS activity_log (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		ts INTEGER NOT NULL,
		payload TEXT NOT NULL
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Get decodes the value stored at key into dst.
func (s *SQLiteStore) Get(ctx context.Context, key string, dst any) error {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Set stores value at key as JSON.
func (s *SQLiteStore) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, string(data))
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	logging.StoreDebug("kv set %s (%d bytes)", key, len(data))
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Append inserts the batch so that batch[0] has the highest sequence number,
// then trims the table to the cap.
func (s *SQLiteStore) Append(ctx context.Context, entries []LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := normalizeBatch(entries, time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO activity_log (id, ts, payload) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare append: %w", err)
	}
	defer stmt.Close()

	for i := len(batch) - 1; i >= 0; i-- {
		payload, err := json.Marshal(batch[i])
		if err != nil {
			return fmt.Errorf("encode log entry: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, batch[i].ID, batch[i].Timestamp, string(payload)); err != nil {
			return fmt.Errorf("insert log entry: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM activity_log WHERE seq NOT IN (
			SELECT seq FROM activity_log ORDER BY seq DESC LIMIT ?
		)`, s.logCap); err != nil {
		return fmt.Errorf("trim log: %w", err)
	}
	return tx.Commit()
}

// Recent returns up to limit entries, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]LogEntry, error) {
	if limit <= 0 || limit > s.logCap {
		limit = s.logCap
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT payload FROM activity_log ORDER BY seq DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query log: %w", err)
	}
	defer rows.Close()

	out := make([]LogEntry, 0, limit)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		var e LogEntry
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			logging.StoreError("skipping undecodable log row: %v", err)
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Clear removes every log entry.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM activity_log"); err != nil {
		return fmt.Errorf("clear log: %w", err)
	}
	logging.Store("activity log cleared")
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
