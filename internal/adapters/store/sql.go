package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

// dialect holds the statements that differ between SQL backends
type dialect struct {
	name         string
	schema       []string
	insertIgnore string
}

// sqlStore implements Store on database/sql. Every result row keeps the
// full record as JSON next to the columns used for lookups.
type sqlStore struct {
	db       *sql.DB
	dialect  dialect
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newSQLStore(db *sql.DB, d dialect, logger *zap.Logger, retention, cleanupFreq time.Duration) (*sqlStore, error) {
	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create %s schema: %w", d.name, err)
		}
	}

	s := &sqlStore{
		db:      db,
		dialect: d,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
	if cleanupFreq > 0 && retention > 0 {
		go runCleanup(s, retention, cleanupFreq, s.stopCh, logger)
	}
	return s, nil
}

// Append stores a batch in one transaction; existing rows are kept
func (s *sqlStore) Append(ctx context.Context, results []*core.ClassificationResult) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.dialect.insertIgnore+` INTO classification_results
		(session_id, message_id, category, confidence, uncertain, classified_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode result %s: %w", r.MessageID, err)
		}
		if _, err := stmt.ExecContext(ctx, r.SessionID, r.MessageID, string(r.Category),
			r.Confidence, r.Uncertain, r.ClassifiedAt.UnixNano(), string(payload)); err != nil {
			return fmt.Errorf("failed to insert result %s: %w", r.MessageID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}
	return nil
}

// Has reports whether a result is stored
func (s *sqlStore) Has(ctx context.Context, sessionID, messageID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM classification_results
		WHERE session_id = ? AND message_id = ?
	`, sessionID, messageID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query result log: %w", err)
	}
	return true, nil
}

// Get returns a stored result
func (s *sqlStore) Get(ctx context.Context, sessionID, messageID string) (*core.ClassificationResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM classification_results
		WHERE session_id = ? AND message_id = ?
	`, sessionID, messageID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query result log: %w", err)
	}
	var r core.ClassificationResult
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, fmt.Errorf("failed to decode result %s: %w", messageID, err)
	}
	return &r, nil
}

// Uncertain returns the uncertain results of a session, least confident first
func (s *sqlStore) Uncertain(ctx context.Context, sessionID string) ([]*core.ClassificationResult, error) {
	return s.queryResults(ctx, `
		SELECT payload FROM classification_results
		WHERE session_id = ? AND uncertain = ?
		ORDER BY confidence ASC, message_id ASC
	`, sessionID, true)
}

// LowConfidence returns accepted results below ceiling, least confident first
func (s *sqlStore) LowConfidence(ctx context.Context, sessionID string, ceiling float64, limit int) ([]*core.ClassificationResult, error) {
	if limit <= 0 {
		return nil, nil
	}
	return s.queryResults(ctx, `
		SELECT payload FROM classification_results
		WHERE session_id = ? AND uncertain = ? AND confidence < ?
		ORDER BY confidence ASC, message_id ASC
		LIMIT ?
	`, sessionID, false, ceiling, limit)
}

func (s *sqlStore) queryResults(ctx context.Context, query string, args ...any) ([]*core.ClassificationResult, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query result log: %w", err)
	}
	defer rows.Close()

	var out []*core.ClassificationResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		var r core.ClassificationResult
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Cleanup removes results classified before olderThan. Review records are kept.
func (s *sqlStore) Cleanup(ctx context.Context, olderThan time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM classification_results
		WHERE classified_at < ?
	`, olderThan.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to clean up expired results: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		s.logger.Debug("Cleaned up expired results", zap.Int64("expired_count", rowsAffected))
	}
	return nil
}

// AppendCorrections appends correction records in one transaction
func (s *sqlStore) AppendCorrections(ctx context.Context, corrections []*core.Correction) error {
	records := make([]record, len(corrections))
	for i, c := range corrections {
		records[i] = record{id: c.ID, messageID: c.MessageID, sessionID: c.SessionID, createdAt: c.CreatedAt, value: c}
	}
	return s.appendRecords(ctx, "corrections", records)
}

// AppendConfirmations appends confirmation records in one transaction
func (s *sqlStore) AppendConfirmations(ctx context.Context, confirmations []*core.Confirmation) error {
	records := make([]record, len(confirmations))
	for i, c := range confirmations {
		records[i] = record{id: c.ID, messageID: c.MessageID, sessionID: c.SessionID, createdAt: c.CreatedAt, value: c}
	}
	return s.appendRecords(ctx, "confirmations", records)
}

type record struct {
	id        string
	messageID string
	sessionID string
	createdAt time.Time
	value     any
}

func (s *sqlStore) appendRecords(ctx context.Context, table string, records []record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+table+`
		(id, message_id, session_id, created_at, payload)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare %s insert: %w", table, err)
	}
	defer stmt.Close()

	for _, r := range records {
		payload, err := json.Marshal(r.value)
		if err != nil {
			return fmt.Errorf("failed to encode %s record: %w", table, err)
		}
		if _, err := stmt.ExecContext(ctx, r.id, r.messageID, r.sessionID, r.createdAt.UnixNano(), string(payload)); err != nil {
			return fmt.Errorf("failed to insert %s record: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", table, err)
	}
	return nil
}

// Corrections returns every correction, oldest first
func (s *sqlStore) Corrections(ctx context.Context) ([]*core.Correction, error) {
	var out []*core.Correction
	err := s.scanRecords(ctx, "corrections", func(payload []byte) error {
		var c core.Correction
		if err := json.Unmarshal(payload, &c); err != nil {
			return err
		}
		out = append(out, &c)
		return nil
	})
	return out, err
}

// Confirmations returns every confirmation, oldest first
func (s *sqlStore) Confirmations(ctx context.Context) ([]*core.Confirmation, error) {
	var out []*core.Confirmation
	err := s.scanRecords(ctx, "confirmations", func(payload []byte) error {
		var c core.Confirmation
		if err := json.Unmarshal(payload, &c); err != nil {
			return err
		}
		out = append(out, &c)
		return nil
	})
	return out, err
}

func (s *sqlStore) scanRecords(ctx context.Context, table string, decode func([]byte) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM `+table+` ORDER BY created_at ASC, seq ASC`)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return fmt.Errorf("failed to scan %s record: %w", table, err)
		}
		if err := decode([]byte(payload)); err != nil {
			return fmt.Errorf("failed to decode %s record: %w", table, err)
		}
	}
	return rows.Err()
}

// Stop stops the background cleanup task and closes the database connection
func (s *sqlStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database", zap.String("dialect", s.dialect.name), zap.Error(err))
		}
	})
}
