// Package session provides persistence for live dialogue sessions. The web
// layer records every completed turn here and the SSE stream polls the store
// for turns it has not yet delivered.
package session

import (
	"github.com/disputalabs/disputa/internal/core"
)

// Store defines the interface for session persistence.
type Store interface {
	// Initialize sets up the storage (creates tables, etc.)
	Initialize() error

	// Close closes the storage connection.
	Close() error

	// Session operations
	CreateSession(s *core.Session) error
	GetSession(id string) (*core.Session, error)
	UpdateSession(s *core.Session) error
	DeleteSession(id string) error
	ListSessions(limit, offset int) ([]*core.SessionSummary, error)

	// Turn operations
	AddTurn(t *core.SessionTurn) error
	GetTurns(sessionID string) ([]*core.SessionTurn, error)
	// GetTurnsAfter returns turns with a number greater than afterNumber, in
	// order. Used by the SSE stream to pick up where it left off.
	GetTurnsAfter(sessionID string, afterNumber int) ([]*core.SessionTurn, error)
}
