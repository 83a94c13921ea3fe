// Package handlers provides the REST and SSE interface for live dialogue
// sessions. A session runs both dialogue protocols for one question in the
// background; every completed turn is persisted so clients can stream or
// poll progress.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/disputalabs/disputa/internal/benchmark"
	"github.com/disputalabs/disputa/internal/core"
	"github.com/disputalabs/disputa/internal/export"
	"github.com/disputalabs/disputa/internal/gateway"
	"github.com/disputalabs/disputa/internal/session"
	"github.com/disputalabs/disputa/internal/strategy"
)

// Options configure a Handler beyond its required collaborators.
type Options struct {
	// Pacing is the delay between dialogue turns.
	Pacing time.Duration

	// RunTimeout bounds a whole background session run.
	RunTimeout time.Duration
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	store   session.Store
	gateway gateway.Gateway
	pacing  time.Duration
	timeout time.Duration
}

// New creates a new Handler.
func New(store session.Store, gw gateway.Gateway, optFns ...func(o *Options)) *Handler {
	opts := Options{
		Pacing:     time.Second,
		RunTimeout: 30 * time.Minute,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Handler{
		store:   store,
		gateway: gw,
		pacing:  opts.Pacing,
		timeout: opts.RunTimeout,
	}
}

// Routes builds the HTTP router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/strategies", h.handleListStrategies)
		r.Get("/benchmarks", h.handleListBenchmarks)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.handleListSessions)
			r.Post("/", h.handleCreateSession)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.handleGetSession)
				r.Delete("/", h.handleDeleteSession)
				r.Get("/turns", h.handleSessionTurns)
				r.Get("/stream", h.handleSessionStream)
				r.Get("/export/{format}", h.handleExportSession)
			})
		})
	})

	return r
}

func (h *Handler) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	h.json(w, strategy.Defaults())
}

func (h *Handler) handleListBenchmarks(w http.ResponseWriter, r *http.Request) {
	h.json(w, benchmark.Names())
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	if limit <= 0 {
		limit = 20
	}

	sessions, err := h.store.ListSessions(limit, offset)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []*core.SessionSummary{}
	}

	h.json(w, sessions)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
		Strategy string `json:"strategy"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		h.jsonError(w, "question is required", http.StatusBadRequest)
		return
	}
	if req.Strategy == "" {
		req.Strategy = "debate"
	}
	if !strategy.Valid(req.Strategy) {
		h.jsonError(w, fmt.Sprintf("unknown strategy %q (available: %s)", req.Strategy, strings.Join(strategy.List(), ", ")), http.StatusBadRequest)
		return
	}

	now := time.Now()
	sess := &core.Session{
		ID:        uuid.NewString(),
		Question:  req.Question,
		Strategy:  req.Strategy,
		Status:    core.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.store.CreateSession(sess); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	go h.runSession(sess)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	h.writeJSON(w, sess)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, err := h.store.GetSession(id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if sess == nil {
		h.jsonError(w, "session not found", http.StatusNotFound)
		return
	}

	turns, err := h.store.GetTurns(id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if turns == nil {
		turns = []*core.SessionTurn{}
	}

	h.json(w, map[string]interface{}{
		"session": sess,
		"turns":   turns,
	})
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, err := h.store.GetSession(id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if sess == nil {
		h.jsonError(w, "session not found", http.StatusNotFound)
		return
	}

	if err := h.store.DeleteSession(id); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleSessionTurns returns turns numbered strictly after the "after" query
// parameter, for clients that poll instead of streaming.
func (h *Handler) handleSessionTurns(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	after, _ := strconv.Atoi(r.URL.Query().Get("after"))

	sess, err := h.store.GetSession(id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if sess == nil {
		h.jsonError(w, "session not found", http.StatusNotFound)
		return
	}

	turns, err := h.store.GetTurnsAfter(id, after)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if turns == nil {
		turns = []*core.SessionTurn{}
	}

	h.json(w, map[string]interface{}{
		"status": sess.Status,
		"turns":  turns,
	})
}

func (h *Handler) handleExportSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	format := chi.URLParam(r, "format")

	sess, err := h.store.GetSession(id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if sess == nil {
		h.jsonError(w, "session not found", http.StatusNotFound)
		return
	}

	turns, err := h.store.GetTurns(id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	exporter, err := export.GetExporter(export.Format(format))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	filename := export.GenerateFilename(sess, exporter.FileExtension())

	switch format {
	case "pdf":
		w.Header().Set("Content-Type", "application/pdf")
	case "json":
		w.Header().Set("Content-Type", "application/json")
	default:
		w.Header().Set("Content-Type", "text/markdown")
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := exporter.Export(sess, turns, w); err != nil {
		slog.Error("Export failed", "session_id", id, "format", format, "error", err)
		http.Error(w, "Export failed", http.StatusInternalServerError)
	}
}

// Helper methods

func (h *Handler) json(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	h.writeJSON(w, data)
}

func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
