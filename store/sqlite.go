package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/helixlab/bioflow/domain"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Serialize writers through a single connection; SQLite handles the
	// key-level locking from there.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			last_accessed DATETIME NOT NULL,
			snapshot TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_active ON sessions(active, created_at)`,
		`CREATE TABLE IF NOT EXISTS executions (
			execution_id TEXT PRIMARY KEY,
			stage TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			record TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_executions_stage ON executions(stage, started_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSession writes the full session snapshot.
func (s *SQLiteStore) SaveSession(ctx context.Context, session *domain.Session) error {
	snapshot, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session snapshot: %w", err)
	}
	active := 0
	if session.Active {
		active = 1
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (session_id, user_id, active, created_at, last_accessed, snapshot)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		session.SessionID, session.UserID, active, session.CreatedAt, session.LastAccessed, string(snapshot))
	return err
}

// GetSession retrieves a session snapshot by id.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var snapshot string
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM sessions WHERE session_id = ?`,
		sessionID).Scan(&snapshot)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(snapshot), &session); err != nil {
		return nil, fmt.Errorf("failed to decode session snapshot: %w", err)
	}
	return &session, nil
}

// ListActiveSessionIDs lists ids of sessions not marked inactive.
func (s *SQLiteStore) ListActiveSessionIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id FROM sessions WHERE active = 1 ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteSession physically removes a session snapshot.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE session_id = ?`, sessionID)
	return err
}

// SaveExecution appends a finalized execution record.
func (s *SQLiteStore) SaveExecution(ctx context.Context, rec *domain.ExecutionRecord) error {
	record, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode execution record: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO executions (execution_id, stage, started_at, record) VALUES (?, ?, ?, ?)`,
		rec.ExecutionID, rec.Stage, rec.StartedAt, string(record))
	return err
}

// ListExecutions returns records started at or after since, oldest first.
func (s *SQLiteStore) ListExecutions(ctx context.Context, since time.Time) ([]domain.ExecutionRecord, error) {
	query := `SELECT record FROM executions`
	args := []interface{}{}
	if !since.IsZero() {
		query += ` WHERE started_at >= ?`
		args = append(args, since)
	}
	query += ` ORDER BY started_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.ExecutionRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var rec domain.ExecutionRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode execution record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
