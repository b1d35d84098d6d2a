package entity

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is recorded when this tool bootstraps a fresh database.
// Databases created by the ingestion subsystem carry their own versioning.
const schemaVersion = 1

// Store wraps the archive SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the archive database at path, applying the pragmas the
// engine depends on and bootstrapping the schema when the database is new.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
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

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DB exposes the underlying connection for transaction owners and test
// fixtures. The merge executor manages its own transactions through this.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='entities'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}

	if tableExists > 0 {
		// Externally-created archive: only ensure the audit table we own.
		_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS merge_audit (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            created_at TEXT NOT NULL,
            actor TEXT NOT NULL,
            action TEXT NOT NULL,
            payload TEXT NOT NULL
        )`)
		if err != nil {
			return fmt.Errorf("ensure merge_audit table: %w", err)
		}
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Backup writes a consistent snapshot of the database to destPath using
// VACUUM INTO. The destination must not already exist.
func (s *Store) Backup(ctx context.Context, destPath string) error {
	if strings.TrimSpace(destPath) == "" {
		return errors.New("backup path is required")
	}
	if _, err := os.Stat(destPath); err == nil {
		return fmt.Errorf("backup target %q already exists", destPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat backup target: %w", err)
	}
	if dir := filepath.Dir(destPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create backup directory: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("vacuum into %q: %w", destPath, err)
	}
	return nil
}

// BackupFileName returns the timestamped file name used for pre-run backups.
func BackupFileName(dbPath string, now time.Time) string {
	base := filepath.Base(dbPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" {
		ext = ".db"
	}
	return fmt.Sprintf("%s-%s%s", stem, now.UTC().Format("20060102T150405Z"), ext)
}
