package session

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/disputalabs/disputa/internal/core"
)

func TestSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	if err := store.Initialize(); err != nil {
		t.Fatalf("failed to initialize: %v", err)
	}

	t.Run("CreateAndGetSession", func(t *testing.T) {
		now := time.Now()
		sess := &core.Session{
			ID:        "test-session-1",
			Question:  "Which option is correct?",
			Strategy:  "debate",
			Status:    core.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := store.CreateSession(sess); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		got, err := store.GetSession(sess.ID)
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}
		if got == nil {
			t.Fatal("session not found")
		}
		if got.ID != sess.ID {
			t.Errorf("ID mismatch: got %s, want %s", got.ID, sess.ID)
		}
		if got.Question != sess.Question {
			t.Errorf("Question mismatch: got %s, want %s", got.Question, sess.Question)
		}
		if got.Error != "" {
			t.Errorf("unexpected error value: %q", got.Error)
		}
	})

	t.Run("UpdateSession", func(t *testing.T) {
		sess, _ := store.GetSession("test-session-1")
		sess.Status = core.StatusFailed
		sess.Error = "gateway unavailable"
		completed := time.Now()
		sess.CompletedAt = &completed

		if err := store.UpdateSession(sess); err != nil {
			t.Fatalf("failed to update session: %v", err)
		}

		got, _ := store.GetSession("test-session-1")
		if got.Status != core.StatusFailed {
			t.Errorf("Status = %s, want %s", got.Status, core.StatusFailed)
		}
		if got.Error != "gateway unavailable" {
			t.Errorf("Error = %q", got.Error)
		}
		if got.CompletedAt == nil {
			t.Error("CompletedAt not persisted")
		}
	})

	t.Run("AddAndGetTurns", func(t *testing.T) {
		for i := 1; i <= 3; i++ {
			agent := core.AgentA
			if i%2 == 0 {
				agent = core.AgentB
			}
			turn := &core.SessionTurn{
				ID:        fmt.Sprintf("turn-%d", i),
				SessionID: "test-session-1",
				Mode:      core.ModeSimulated,
				Agent:     agent,
				Number:    i,
				Content:   fmt.Sprintf("turn %d content", i),
				CreatedAt: time.Now(),
			}
			if err := store.AddTurn(turn); err != nil {
				t.Fatalf("failed to add turn %d: %v", i, err)
			}
		}

		turns, err := store.GetTurns("test-session-1")
		if err != nil {
			t.Fatalf("failed to get turns: %v", err)
		}
		if len(turns) != 3 {
			t.Fatalf("turn count = %d, want 3", len(turns))
		}
		for i, turn := range turns {
			if turn.Number != i+1 {
				t.Errorf("turn %d out of order: number = %d", i, turn.Number)
			}
		}
		if turns[1].Agent != core.AgentB {
			t.Errorf("turn 2 agent = %s, want %s", turns[1].Agent, core.AgentB)
		}
	})

	t.Run("GetTurnsAfter", func(t *testing.T) {
		turns, err := store.GetTurnsAfter("test-session-1", 1)
		if err != nil {
			t.Fatalf("failed to get turns after: %v", err)
		}
		if len(turns) != 2 {
			t.Fatalf("turn count = %d, want 2", len(turns))
		}
		if turns[0].Number != 2 {
			t.Errorf("first turn number = %d, want 2", turns[0].Number)
		}
	})

	t.Run("ListSessions", func(t *testing.T) {
		now := time.Now().Add(time.Second)
		other := &core.Session{
			ID:        "test-session-2",
			Question:  "Another question",
			Strategy:  "cooperative",
			Status:    core.StatusCompleted,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := store.CreateSession(other); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		summaries, err := store.ListSessions(10, 0)
		if err != nil {
			t.Fatalf("failed to list sessions: %v", err)
		}
		if len(summaries) != 2 {
			t.Fatalf("summary count = %d, want 2", len(summaries))
		}
		// Newest first.
		if summaries[0].ID != "test-session-2" {
			t.Errorf("first summary = %s, want test-session-2", summaries[0].ID)
		}
		if summaries[1].TurnCount != 3 {
			t.Errorf("turn count = %d, want 3", summaries[1].TurnCount)
		}
	})

	t.Run("DeleteSessionCascades", func(t *testing.T) {
		if err := store.DeleteSession("test-session-1"); err != nil {
			t.Fatalf("failed to delete session: %v", err)
		}

		got, err := store.GetSession("test-session-1")
		if err != nil {
			t.Fatalf("get after delete: %v", err)
		}
		if got != nil {
			t.Error("session still present after delete")
		}

		turns, err := store.GetTurns("test-session-1")
		if err != nil {
			t.Fatalf("get turns after delete: %v", err)
		}
		if len(turns) != 0 {
			t.Errorf("turns not cascaded: %d remain", len(turns))
		}
	})

	t.Run("GetMissingSession", func(t *testing.T) {
		got, err := store.GetSession("nope")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Error("expected nil for missing session")
		}
	})
}
