// Package api provides HTTP handlers for the study planner API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/planner"
	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/session"
	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/store"
	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/transcript"
)

// maxRequestBodySize is the maximum allowed chat request body (1MB).
const maxRequestBodySize = 1 << 20

// Reconciler runs one turn against a session's memory.
type Reconciler interface {
	HandleTurn(ctx context.Context, sessionKey, message string) (*planner.TurnResult, error)
}

// Handler handles study planner HTTP requests.
type Handler struct {
	rec      Reconciler
	repo     store.Repository
	sessions *session.Manager
	log      transcript.Logger
}

// NewHandler creates a new Handler.
func NewHandler(rec Reconciler, repo store.Repository, sessions *session.Manager, log transcript.Logger) *Handler {
	if log == nil {
		log = transcript.NopLogger{}
	}
	return &Handler{
		rec:      rec,
		repo:     repo,
		sessions: sessions,
		log:      log,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// chatRequest is the POST /api/chat body.
type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// HandleChat handles POST /api/chat requests: one full turn against the
// session identified by the request's sessionId.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	message := strings.TrimSpace(req.Message)
	if sessionID == "" || message == "" {
		Error(w, http.StatusBadRequest, "sessionId and message are required")
		return
	}

	reqID := chiMiddleware.GetReqID(r.Context())
	slog.Info("Chat turn request",
		"session_id", sessionID,
		"message_length", len(message),
		"request_id", reqID,
	)

	// One turn in flight per session key; concurrent requests for the same
	// session queue here.
	release := h.sessions.Acquire(sessionID)
	defer release()

	h.log.Log(transcript.Event{
		SessionKey: sessionID,
		Role:       "user",
		Content:    message,
		Meta:       map[string]any{"request_id": reqID, "channel": "http"},
	})

	result, err := h.rec.HandleTurn(r.Context(), sessionID, message)
	if err != nil {
		slog.Error("Chat turn failed", "session_id", sessionID, "error", err, "request_id", reqID)
		Error(w, statusForTurnError(err), err.Error())
		return
	}

	h.log.Log(transcript.Event{
		SessionKey: sessionID,
		Role:       "assistant",
		Content:    result.Reply,
		Meta:       map[string]any{"request_id": reqID, "channel": "http"},
	})

	JSON(w, http.StatusOK, result)
}

// statusForTurnError maps turn failure kinds onto HTTP statuses.
func statusForTurnError(err error) int {
	switch {
	case errors.Is(err, planner.ErrEmptySession), errors.Is(err, planner.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, planner.ErrGenerationTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, planner.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HandleMemory handles GET /api/memory?sessionId= requests, returning the
// current memory snapshot without running a turn. A session with no record
// yields the all-empty default.
func (h *Handler) HandleMemory(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("sessionId"))
	if sessionID == "" {
		Error(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	mem, err := h.repo.LoadMemory(r.Context(), sessionID)
	if err != nil {
		slog.Error("Memory snapshot load failed", "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load memory")
		return
	}

	JSON(w, http.StatusOK, map[string]any{"memory": mem.Snapshot()})
}

// HandleNewSession handles POST /api/session requests, minting a fresh
// session key for clients that cannot generate one locally.
func (h *Handler) HandleNewSession(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"sessionId": uuid.NewString()})
}

// HandleHealth handles GET /api/health requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		slog.Debug("failed to write health response", "error", err)
	}
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealth)
		r.Post("/chat", h.HandleChat)
		r.Get("/memory", h.HandleMemory)
		r.Post("/session", h.HandleNewSession)
		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			Error(w, http.StatusNotFound, "Not found")
		})
	})
}
