package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var sqliteDialect = dialect{
	name:         "sqlite",
	insertIgnore: "INSERT OR IGNORE",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS classification_results (
			session_id TEXT NOT NULL,
			message_id TEXT NOT NULL,
			category TEXT NOT NULL,
			confidence REAL NOT NULL,
			uncertain BOOLEAN NOT NULL,
			classified_at INTEGER NOT NULL,
			payload TEXT NOT NULL,
			PRIMARY KEY (session_id, message_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_review ON classification_results(session_id, uncertain, confidence)`,
		`CREATE INDEX IF NOT EXISTS idx_results_classified_at ON classification_results(classified_at)`,
		`CREATE TABLE IF NOT EXISTS corrections (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			message_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			payload TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS confirmations (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			message_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			payload TEXT NOT NULL
		)`,
	},
}

// SQLiteStore is a SQLite implementation of Store
type SQLiteStore struct {
	*sqlStore
}

// NewSQLiteStore opens or creates the SQLite database at dbPath
func NewSQLiteStore(dbPath string, logger *zap.Logger, retention, cleanupFreq time.Duration) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// Writes are serialized by SQLite anyway
	db.SetMaxOpenConns(1)

	base, err := newSQLStore(db, sqliteDialect, logger, retention, cleanupFreq)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{sqlStore: base}, nil
}
