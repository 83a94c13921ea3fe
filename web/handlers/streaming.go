package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/disputalabs/disputa/internal/core"
)

// handleSessionStream streams session turns using Server-Sent Events. Turns
// are delivered as "turn_complete" events; a final "session_complete" event
// carries the finished session.
func (h *Handler) handleSessionStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	slog.Debug("New session stream connection", "id", id, "remote_addr", r.RemoteAddr)

	// Set headers for SSE
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		slog.Error("Streaming unsupported: ResponseWriter does not implement http.Flusher")
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	sess, err := h.store.GetSession(id)
	if err != nil {
		slog.Error("Failed to get session for stream", "id", id, "error", err)
		h.sendSSEError(w, flusher, "Failed to get session")
		return
	}
	if sess == nil {
		slog.Warn("Session not found for stream", "id", id)
		h.sendSSEError(w, flusher, "Session not found")
		return
	}

	// Send existing turns immediately
	turns, err := h.store.GetTurns(id)
	if err != nil {
		slog.Error("Failed to get turns for stream", "id", id, "error", err)
		h.sendSSEError(w, flusher, "Failed to get turns")
		return
	}

	lastNumber := 0
	for _, turn := range turns {
		h.sendSSEEvent(w, flusher, "turn_complete", turn)
		if turn.Number > lastNumber {
			lastNumber = turn.Number
		}
	}

	// If the session is already settled, send the final event and close
	if sess.Status != core.StatusPending && sess.Status != core.StatusInProgress {
		slog.Debug("Session already settled", "id", id, "status", sess.Status)
		h.sendSSEEvent(w, flusher, "session_complete", sess)
		return
	}

	// Poll the store for new turns. The background runner persists each turn
	// before it updates the session status, so reading status first cannot
	// miss turns.
	ctx := r.Context()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	deadline := time.NewTimer(h.timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("Stream context done", "id", id)
			return
		case <-deadline.C:
			slog.Warn("Stream timed out", "id", id)
			h.sendSSEError(w, flusher, "Stream timed out")
			return
		case <-ticker.C:
			current, err := h.store.GetSession(id)
			if err != nil {
				slog.Error("Stream error fetching session", "id", id, "error", err)
				continue
			}
			if current == nil {
				h.sendSSEError(w, flusher, "Session deleted")
				return
			}

			newTurns, err := h.store.GetTurnsAfter(id, lastNumber)
			if err != nil {
				slog.Error("Stream error fetching turns", "id", id, "error", err)
				continue
			}
			for _, turn := range newTurns {
				h.sendSSEEvent(w, flusher, "turn_complete", turn)
				if turn.Number > lastNumber {
					lastNumber = turn.Number
				}
			}

			if current.Status != core.StatusPending && current.Status != core.StatusInProgress {
				slog.Debug("Session settled during stream", "id", id, "status", current.Status)
				h.sendSSEEvent(w, flusher, "session_complete", current)
				return
			}
		}
	}
}

// sendSSEEvent sends a server-sent event.
func (h *Handler) sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		slog.Error("Failed to marshal SSE data", "error", err)
		return
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		slog.Error("Failed to write SSE event", "error", err)
		return
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", jsonData); err != nil {
		slog.Error("Failed to write SSE data", "error", err)
		return
	}
	flusher.Flush()
}

// sendSSEError sends an error event.
func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, message string) {
	h.sendSSEEvent(w, flusher, "error", map[string]string{"message": message})
}
