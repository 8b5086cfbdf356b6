package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the mapping in a SQLite table. Save replaces every row in
// a single transaction, so readers never observe a partially written mapping.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("memory: create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("memory: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("memory: pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("memory: migration: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS subtask_memory (
			subtask    TEXT PRIMARY KEY,
			position   INTEGER NOT NULL,
			record     TEXT    NOT NULL,
			updated_at TEXT    NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_subtask_memory_position ON subtask_memory(position);
	`)
	return err
}

func (s *SQLiteStore) Load(ctx context.Context) (*Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT subtask, record FROM subtask_memory ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("memory: query: %w", err)
	}
	defer rows.Close()

	snap := NewSnapshot()
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("memory: scan: %w", err)
		}
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("memory: decode %q: %w", key, err)
		}
		snap.Put(key, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("memory: rows: %w", err)
	}
	return snap, nil
}

func (s *SQLiteStore) Save(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("memory: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM subtask_memory`); err != nil {
		return fmt.Errorf("memory: clear: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO subtask_memory (subtask, position, record, updated_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("memory: prepare: %w", err)
	}
	defer stmt.Close()

	for i, key := range snap.Keys() {
		rec, _ := snap.Get(key)
		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("memory: encode %q: %w", key, err)
		}
		if _, err := stmt.ExecContext(ctx, key, i, string(raw), rec.UpdatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("memory: insert %q: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("memory: commit: %w", err)
	}
	return nil
}
