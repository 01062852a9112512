package kvstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// migration is a numbered schema change. Migrations are applied in order
// and tracked in the schema_migrations table so each runs exactly once.
type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "initial kv schema",
		SQL: `
CREATE TABLE IF NOT EXISTS kv (
    area        TEXT NOT NULL,
    key         TEXT NOT NULL,
    value       TEXT NOT NULL,
    updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (area, key)
);`,
	},
}

// OpenDB opens (or creates) the SQLite database backing the key-value areas.
// It creates parent directories if needed, enables foreign keys and WAL mode,
// and runs any pending migrations.
func OpenDB(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// WAL for better concurrency between TUI and CLI invocations.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version     INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.Version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if exists > 0 {
			continue
		}

		if _, err := db.Exec(m.SQL); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := db.Exec(
			"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// DefaultDBPath returns the default database file path:
// ~/.local/share/tabvault/tabvault.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "tabvault", "tabvault.db"), nil
}

// SQLite is a Store backed by one area of the shared kv table. A non-zero
// maxBytes enforces a quota on the serialized size of the whole area; a
// rejected Set rolls back without touching the area.
type SQLite struct {
	db       *sql.DB
	area     string
	maxBytes int
}

// NewSQLite binds a Store to the named area of db. maxBytes of 0 means
// unlimited.
func NewSQLite(db *sql.DB, area string, maxBytes int) *SQLite {
	return &SQLite{db: db, area: area, maxBytes: maxBytes}
}

func (s *SQLite) Get(keys ...string) (map[string]json.RawMessage, error) {
	result := make(map[string]json.RawMessage)
	if len(keys) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, 0, len(keys)+1)
	args = append(args, s.area)
	for _, k := range keys {
		args = append(args, k)
	}

	rows, err := s.db.Query(
		"SELECT key, value FROM kv WHERE area = ? AND key IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query kv: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan kv row: %w", err)
		}
		result[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kv rows: %w", err)
	}
	return result, nil
}

func (s *SQLite) Set(items map[string]json.RawMessage) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for key, value := range items {
		_, err := tx.Exec(
			`INSERT INTO kv (area, key, value, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			 ON CONFLICT (area, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
			s.area, key, string(value),
		)
		if err != nil {
			return fmt.Errorf("upsert key %q: %w", key, err)
		}
	}

	if s.maxBytes > 0 {
		var total int
		err := tx.QueryRow(
			"SELECT COALESCE(SUM(LENGTH(key) + LENGTH(value)), 0) FROM kv WHERE area = ?",
			s.area,
		).Scan(&total)
		if err != nil {
			return fmt.Errorf("compute area size: %w", err)
		}
		if total > s.maxBytes {
			return ErrQuotaExceeded
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLite) Remove(keys ...string) error {
	for _, key := range keys {
		if _, err := s.db.Exec("DELETE FROM kv WHERE area = ? AND key = ?", s.area, key); err != nil {
			return fmt.Errorf("delete key %q: %w", key, err)
		}
	}
	return nil
}

func (s *SQLite) Clear() error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE area = ?", s.area); err != nil {
		return fmt.Errorf("clear area %q: %w", s.area, err)
	}
	return nil
}

func (s *SQLite) BytesInUse() (int, error) {
	var total int
	err := s.db.QueryRow(
		"SELECT COALESCE(SUM(LENGTH(key) + LENGTH(value)), 0) FROM kv WHERE area = ?",
		s.area,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("compute area size: %w", err)
	}
	return total, nil
}
