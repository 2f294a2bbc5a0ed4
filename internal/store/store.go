// Package store implements durable storage for tasks, audit logs, users,
// and the global version counter, backed by SQLite.
//
// Two guarantees matter here and are enforced at this layer, not above it:
//
//  1. A task write and its audit entry commit or roll back together —
//     CreateTask and UpdateTask run both statements in one transaction.
//  2. Any insert, update, or delete of a task row bumps the global
//     counter (mod 2^31-1) via SQLite triggers, so the counter cannot be
//     bypassed by a write path that skips the lifecycle service.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Store is the SQLite-backed persistence layer.
type Store struct {
	db *sql.DB
}

// Open creates the data directory if needed, opens SQLite with WAL mode,
// and runs migrations.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
	}

	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			username      TEXT    NOT NULL UNIQUE,
			password_hash TEXT    NOT NULL,
			salt          TEXT    NOT NULL,
			role          TEXT    NOT NULL,
			is_active     INTEGER NOT NULL DEFAULT 1,
			created_at    TEXT    NOT NULL,
			updated_at    TEXT
		);

		CREATE TABLE IF NOT EXISTS tasks (
			id                   INTEGER PRIMARY KEY AUTOINCREMENT,
			title                TEXT    NOT NULL,
			description          TEXT,
			status               TEXT    NOT NULL DEFAULT 'new',
			created_by           INTEGER NOT NULL REFERENCES users(id),
			assigned_to          INTEGER REFERENCES users(id),
			location_lat         REAL    NOT NULL CHECK (location_lat BETWEEN -90 AND 90),
			location_lon         REAL    NOT NULL CHECK (location_lon BETWEEN -180 AND 180),
			historical_assignees TEXT    NOT NULL DEFAULT '[]',
			created_at           TEXT    NOT NULL,
			updated_at           TEXT
		);

		CREATE TABLE IF NOT EXISTS task_logs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id     INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			timestamp   TEXT    NOT NULL,
			status      TEXT    NOT NULL,
			assigned_to INTEGER,
			modified_by INTEGER NOT NULL,
			note        TEXT
		);

		CREATE TABLE IF NOT EXISTS global_counter (
			id           INTEGER PRIMARY KEY CHECK (id = 1),
			task_counter INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_task_status    ON tasks(status);
		CREATE INDEX IF NOT EXISTS idx_task_location  ON tasks(location_lat, location_lon);
		CREATE INDEX IF NOT EXISTS idx_tasklog_task_time ON task_logs(task_id, timestamp);
		CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// The counter row must exist before the triggers can bump it.
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO global_counter (id, task_counter) VALUES (1, 0)`); err != nil {
		return err
	}

	// Counter triggers: every task write advances the counter, whatever
	// code path performed it. 2147483647 = 2^31-1.
	triggers := `
		CREATE TRIGGER IF NOT EXISTS tasks_counter_after_insert
		AFTER INSERT ON tasks BEGIN
			UPDATE global_counter SET task_counter = (task_counter + 1) % 2147483647;
		END;

		CREATE TRIGGER IF NOT EXISTS tasks_counter_after_update
		AFTER UPDATE ON tasks BEGIN
			UPDATE global_counter SET task_counter = (task_counter + 1) % 2147483647;
		END;

		CREATE TRIGGER IF NOT EXISTS tasks_counter_after_delete
		AFTER DELETE ON tasks BEGIN
			UPDATE global_counter SET task_counter = (task_counter + 1) % 2147483647;
		END;
	`
	_, err := s.db.Exec(triggers)
	return err
}

// CurrentVersion returns the global change counter.
func (s *Store) CurrentVersion() (int64, error) {
	var v int64
	if err := s.db.QueryRow(`SELECT task_counter FROM global_counter WHERE id = 1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("store: read counter: %w", err)
	}
	return v, nil
}

// ResetCounter sets the global counter back to zero. Administrative
// tooling only; forces every client into a full resync.
func (s *Store) ResetCounter() error {
	_, err := s.db.Exec(`UPDATE global_counter SET task_counter = 0 WHERE id = 1`)
	return err
}

// Wipe removes all tasks, logs, and users and zeroes the counter.
// Administrative tooling only.
func (s *Store) Wipe() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin wipe: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range []string{
		`DELETE FROM task_logs`,
		`DELETE FROM tasks`,
		`DELETE FROM users`,
		`UPDATE global_counter SET task_counter = 0 WHERE id = 1`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("store: wipe: %w", err)
		}
	}
	return tx.Commit()
}
