package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"

	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/session"
	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/transcript"
)

// WSHandler serves the WebSocket chat channel. Each text frame carries one
// {"message": ...} turn request for the session named at connect time;
// replies mirror POST /api/chat bodies. The sequential read loop gives the
// same one-turn-at-a-time ordering the HTTP path enforces with locks.
type WSHandler struct {
	rec            Reconciler
	sessions       *session.Manager
	log            transcript.Logger
	originPatterns []string
}

// NewWSHandler creates a new WebSocket chat handler.
func NewWSHandler(rec Reconciler, sessions *session.Manager, log transcript.Logger, originPatterns []string) *WSHandler {
	if log == nil {
		log = transcript.NopLogger{}
	}
	if len(originPatterns) == 0 {
		originPatterns = []string{"*"}
	}
	return &WSHandler{
		rec:            rec,
		sessions:       sessions,
		log:            log,
		originPatterns: originPatterns,
	}
}

// wsRequest is one inbound chat frame.
type wsRequest struct {
	Message string `json:"message"`
}

// wsError is the error frame shape, matching the HTTP error envelope.
type wsError struct {
	Error string `json:"error"`
}

// ServeHTTP upgrades the connection and runs the chat loop until the client
// disconnects.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("sessionId"))
	if sessionID == "" {
		Error(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	slog.Info("WebSocket chat connected", "session_id", sessionID, "ip", r.RemoteAddr)

	ctx := r.Context()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				slog.Info("WebSocket chat disconnected", "session_id", sessionID)
			} else {
				slog.Warn("WebSocket read failed", "error", err, "session_id", sessionID)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(data, &req); err != nil {
			h.writeJSON(ctx, ws, sessionID, wsError{Error: "invalid message frame"})
			continue
		}

		message := strings.TrimSpace(req.Message)
		if message == "" {
			h.writeJSON(ctx, ws, sessionID, wsError{Error: "message is required"})
			continue
		}

		h.runTurn(ctx, ws, sessionID, message)
	}
}

// runTurn executes one turn and writes the result frame.
func (h *WSHandler) runTurn(ctx context.Context, ws *websocket.Conn, sessionID, message string) {
	release := h.sessions.Acquire(sessionID)
	defer release()

	h.log.Log(transcript.Event{
		SessionKey: sessionID,
		Role:       "user",
		Content:    message,
		Meta:       map[string]any{"channel": "ws"},
	})

	result, err := h.rec.HandleTurn(ctx, sessionID, message)
	if err != nil {
		slog.Error("WebSocket turn failed", "session_id", sessionID, "error", err)
		h.writeJSON(ctx, ws, sessionID, wsError{Error: err.Error()})
		return
	}

	h.log.Log(transcript.Event{
		SessionKey: sessionID,
		Role:       "assistant",
		Content:    result.Reply,
		Meta:       map[string]any{"channel": "ws"},
	})

	h.writeJSON(ctx, ws, sessionID, result)
}

func (h *WSHandler) writeJSON(ctx context.Context, ws *websocket.Conn, sessionID string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Failed to marshal WebSocket frame", "error", err, "session_id", sessionID)
		return
	}
	if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
		slog.Debug("WebSocket write failed", "error", err, "session_id", sessionID)
	}
}
