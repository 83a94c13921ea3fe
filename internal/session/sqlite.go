package session

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/disputalabs/disputa/internal/core"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &SQLiteStore{
		db:   db,
		path: dbPath,
	}, nil
}

// Initialize creates the database schema.
func (s *SQLiteStore) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		strategy TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		error TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		completed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS turns (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		agent TEXT NOT NULL,
		number INTEGER NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_turns_session_id ON turns(session_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
	CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at DESC);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession inserts a new session.
func (s *SQLiteStore) CreateSession(sess *core.Session) error {
	query := `
	INSERT INTO sessions (id, question, strategy, status, error, created_at, updated_at, completed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		sess.ID,
		sess.Question,
		sess.Strategy,
		sess.Status,
		nullIfEmpty(sess.Error),
		sess.CreatedAt,
		sess.UpdatedAt,
		sess.CompletedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// GetSession retrieves a session by ID. Returns nil without error when the
// session does not exist.
func (s *SQLiteStore) GetSession(id string) (*core.Session, error) {
	query := `
	SELECT id, question, strategy, status, error, created_at, updated_at, completed_at
	FROM sessions
	WHERE id = ?
	`

	var sess core.Session
	var errMsg sql.NullString
	var completedAt sql.NullTime

	err := s.db.QueryRow(query, id).Scan(
		&sess.ID,
		&sess.Question,
		&sess.Strategy,
		&sess.Status,
		&errMsg,
		&sess.CreatedAt,
		&sess.UpdatedAt,
		&completedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if errMsg.Valid {
		sess.Error = errMsg.String
	}
	if completedAt.Valid {
		sess.CompletedAt = &completedAt.Time
	}

	return &sess, nil
}

// UpdateSession updates an existing session.
func (s *SQLiteStore) UpdateSession(sess *core.Session) error {
	sess.UpdatedAt = time.Now()

	query := `
	UPDATE sessions
	SET question = ?, strategy = ?, status = ?, error = ?, updated_at = ?, completed_at = ?
	WHERE id = ?
	`

	_, err := s.db.Exec(query,
		sess.Question,
		sess.Strategy,
		sess.Status,
		nullIfEmpty(sess.Error),
		sess.UpdatedAt,
		sess.CompletedAt,
		sess.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	return nil
}

// DeleteSession deletes a session and its turns.
func (s *SQLiteStore) DeleteSession(id string) error {
	_, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ListSessions returns session summaries, newest first.
func (s *SQLiteStore) ListSessions(limit, offset int) ([]*core.SessionSummary, error) {
	query := `
	SELECT s.id, s.question, s.strategy, s.status, s.created_at,
		   (SELECT COUNT(*) FROM turns WHERE session_id = s.id) as turn_count
	FROM sessions s
	ORDER BY s.created_at DESC
	LIMIT ? OFFSET ?
	`

	rows, err := s.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var summaries []*core.SessionSummary
	for rows.Next() {
		var summary core.SessionSummary

		err := rows.Scan(
			&summary.ID,
			&summary.Question,
			&summary.Strategy,
			&summary.Status,
			&summary.CreatedAt,
			&summary.TurnCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session summary: %w", err)
		}

		summaries = append(summaries, &summary)
	}

	return summaries, nil
}

// AddTurn appends a turn to a session.
func (s *SQLiteStore) AddTurn(turn *core.SessionTurn) error {
	query := `
	INSERT INTO turns (id, session_id, mode, agent, number, content, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		turn.ID,
		turn.SessionID,
		turn.Mode,
		turn.Agent,
		turn.Number,
		turn.Content,
		turn.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}

	return nil
}

// GetTurns returns all turns for a session in order.
func (s *SQLiteStore) GetTurns(sessionID string) ([]*core.SessionTurn, error) {
	return s.queryTurns(sessionID, -1)
}

// GetTurnsAfter returns turns numbered strictly after afterNumber.
func (s *SQLiteStore) GetTurnsAfter(sessionID string, afterNumber int) ([]*core.SessionTurn, error) {
	return s.queryTurns(sessionID, afterNumber)
}

func (s *SQLiteStore) queryTurns(sessionID string, afterNumber int) ([]*core.SessionTurn, error) {
	query := `
	SELECT id, session_id, mode, agent, number, content, created_at
	FROM turns
	WHERE session_id = ? AND number > ?
	ORDER BY number ASC
	`

	rows, err := s.db.Query(query, sessionID, afterNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get turns: %w", err)
	}
	defer rows.Close()

	var turns []*core.SessionTurn
	for rows.Next() {
		var turn core.SessionTurn
		err := rows.Scan(
			&turn.ID,
			&turn.SessionID,
			&turn.Mode,
			&turn.Agent,
			&turn.Number,
			&turn.Content,
			&turn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, &turn)
	}

	return turns, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "disputa.db"
	}
	return filepath.Join(home, ".disputa", "disputa.db")
}
