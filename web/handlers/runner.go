package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/disputalabs/disputa/internal/core"
	"github.com/disputalabs/disputa/internal/engine"
	"github.com/disputalabs/disputa/internal/session"
	"github.com/disputalabs/disputa/internal/strategy"
)

// runSession executes both dialogue protocols for a session in the
// background, persisting every completed turn as it lands.
func (h *Handler) runSession(sess *core.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	sess.Status = core.StatusInProgress
	if err := h.store.UpdateSession(sess); err != nil {
		slog.Error("Failed to mark session in progress", "session_id", sess.ID, "error", err)
	}

	runErr := h.runDialogues(ctx, sess)

	now := time.Now()
	sess.CompletedAt = &now
	if runErr != nil {
		slog.Error("Session run failed", "session_id", sess.ID, "error", runErr)
		sess.Status = core.StatusFailed
		sess.Error = runErr.Error()
	} else {
		sess.Status = core.StatusCompleted
	}
	if err := h.store.UpdateSession(sess); err != nil {
		slog.Error("Failed to finalize session", "session_id", sess.ID, "error", err)
	}
}

func (h *Handler) runDialogues(ctx context.Context, sess *core.Session) error {
	base := strategy.Get(sess.Strategy)
	if base == nil {
		return fmt.Errorf("unknown strategy %q", sess.Strategy)
	}
	strat := base.WithFormat(core.FormatCustom)

	recorder := newTurnRecorder(h.store, sess.ID)
	eng := engine.New(h.gateway, strat, core.FormatCustom, func(o *engine.Options) {
		o.Callback = recorder.Record
		o.Pacing = h.pacing
	})

	runs := []struct {
		mode core.Mode
		fn   func(context.Context, string, string) (*engine.Result, error)
	}{
		{core.ModeSimulated, eng.RunSimulated},
		{core.ModeDual, eng.RunDual},
	}

	expected := 0
	for _, run := range runs {
		result, err := run.fn(ctx, sess.ID, sess.Question)
		if result != nil {
			// Turn callbacks are dispatched asynchronously; wait for the ones
			// this dialogue produced before recording the notice or moving to
			// the next protocol, so turn numbers stay in dialogue order.
			expected += agentTurns(result.Transcript)
			recorder.WaitFor(expected, 5*time.Second)
			if result.Converged {
				if notice, ok := lastSystemNotice(result.Transcript); ok {
					recorder.Record(run.mode, core.AgentSystem, notice)
					expected++
				}
			}
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// turnRecorder assigns session-wide turn numbers and persists turns as the
// engine reports them. Safe for the engine's concurrent callback dispatch.
type turnRecorder struct {
	store     session.Store
	sessionID string

	mu   sync.Mutex
	next int
}

func newTurnRecorder(store session.Store, sessionID string) *turnRecorder {
	return &turnRecorder{store: store, sessionID: sessionID}
}

// Record persists one completed turn. Persistence failures are logged but do
// not interrupt the dialogue.
func (r *turnRecorder) Record(mode core.Mode, agent, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	turn := &core.SessionTurn{
		ID:        uuid.NewString(),
		SessionID: r.sessionID,
		Mode:      mode,
		Agent:     agent,
		Number:    r.next,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := r.store.AddTurn(turn); err != nil {
		slog.Error("Failed to persist turn", "session_id", r.sessionID, "number", turn.Number, "error", err)
	}
}

// WaitFor blocks until n turns have been recorded or the timeout expires.
func (r *turnRecorder) WaitFor(n int, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		done := r.next >= n
		r.mu.Unlock()
		if done {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	slog.Warn("Timed out waiting for turn callbacks", "session_id", r.sessionID, "expected", n)
}

// agentTurns counts the spoken agent turns in a result transcript, skipping
// the question and any synthetic notices.
func agentTurns(transcript []core.Message) int {
	n := 0
	for _, msg := range transcript {
		if msg.Role == core.RoleAssistant && msg.Agent != "" {
			n++
		}
	}
	return n
}

// lastSystemNotice returns the content of the trailing system entry, if any.
func lastSystemNotice(transcript []core.Message) (string, bool) {
	if len(transcript) == 0 {
		return "", false
	}
	last := transcript[len(transcript)-1]
	if last.Role != core.RoleSystem {
		return "", false
	}
	return last.Content, true
}
