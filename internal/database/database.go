package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Actions recorded for eviction history rows
const (
	ActionEvict  = "EVICT"
	ActionDryRun = "DRY_RUN"
	ActionError  = "ERROR"
)

// EvictionDB manages the SQLite database for eviction history
type EvictionDB struct {
	db *sql.DB
}

// EvictionRecord represents a single eviction event
type EvictionRecord struct {
	ID           int64
	Timestamp    time.Time
	Action       string
	Path         string
	FileName     string
	Size         int64
	DurationMS   int64
	ErrorMessage string
	CreatedAt    time.Time
}

// NewEvictionDB creates a new database connection and initializes the schema
func NewEvictionDB(dbPath string) (*EvictionDB, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// file: prefix with _loc=auto enables automatic DATETIME parsing
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// Exercise the connection so the file is created up front
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	// WAL mode: the query tool may read while a run is writing
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	edb := &EvictionDB{db: db}
	if err = edb.initSchema(); err != nil {
		return nil, err
	}

	err = nil
	return edb, nil
}

// initSchema creates tables and indexes if they don't exist
func (d *EvictionDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS evictions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		path TEXT NOT NULL,
		file_name TEXT,
		size INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_timestamp ON evictions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_action ON evictions(action);
	CREATE INDEX IF NOT EXISTS idx_path ON evictions(path);
	CREATE INDEX IF NOT EXISTS idx_size ON evictions(size);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// RecordEviction inserts an eviction event into the database
func (d *EvictionDB) RecordEviction(action, path string, size int64, duration time.Duration, errorMsg string) error {
	query := `
	INSERT INTO evictions (timestamp, action, path, file_name, size, duration_ms, error_message)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := d.db.Exec(
		query,
		time.Now().UTC(),
		action,
		path,
		filepath.Base(path),
		size,
		duration.Milliseconds(),
		errorMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to record eviction: %w", err)
	}
	return nil
}

// Close closes the database connection
func (d *EvictionDB) Close() error {
	return d.db.Close()
}
