package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

var mysqlDialect = dialect{
	name:         "mysql",
	insertIgnore: "INSERT IGNORE",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS classification_results (
			session_id VARCHAR(64) NOT NULL,
			message_id VARCHAR(255) NOT NULL,
			category VARCHAR(128) NOT NULL,
			confidence DOUBLE NOT NULL,
			uncertain BOOLEAN NOT NULL,
			classified_at BIGINT NOT NULL,
			payload LONGTEXT NOT NULL,
			PRIMARY KEY (session_id, message_id),
			INDEX idx_results_review (session_id, uncertain, confidence),
			INDEX idx_results_classified_at (classified_at)
		)`,
		`CREATE TABLE IF NOT EXISTS corrections (
			seq BIGINT AUTO_INCREMENT PRIMARY KEY,
			id VARCHAR(64) NOT NULL UNIQUE,
			message_id VARCHAR(255) NOT NULL,
			session_id VARCHAR(64) NOT NULL,
			created_at BIGINT NOT NULL,
			payload LONGTEXT NOT NULL,
			INDEX idx_corrections_created_at (created_at)
		)`,
		`CREATE TABLE IF NOT EXISTS confirmations (
			seq BIGINT AUTO_INCREMENT PRIMARY KEY,
			id VARCHAR(64) NOT NULL UNIQUE,
			message_id VARCHAR(255) NOT NULL,
			session_id VARCHAR(64) NOT NULL,
			created_at BIGINT NOT NULL,
			payload LONGTEXT NOT NULL,
			INDEX idx_confirmations_created_at (created_at)
		)`,
	},
}

// MySQLStore is a MySQL implementation of Store
type MySQLStore struct {
	*sqlStore
}

// NewMySQLStore connects to MySQL and creates the tables if needed
func NewMySQLStore(dsn string, logger *zap.Logger, retention, cleanupFreq time.Duration) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	base, err := newSQLStore(db, mysqlDialect, logger, retention, cleanupFreq)
	if err != nil {
		return nil, err
	}
	return &MySQLStore{sqlStore: base}, nil
}
