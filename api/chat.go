package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/sahayakbot/sahayak/internal/chat"
	"github.com/sahayakbot/sahayak/internal/session"
)

// ChatService answers a single user message end to end.
// Implemented by chat.Pipeline.
type ChatService interface {
	Handle(ctx context.Context, req chat.Request) (*chat.Response, error)
}

// ChatHandler serves the conversational endpoint.
type ChatHandler struct {
	pipeline ChatService
	logger   *slog.Logger
}

// NewChatHandler creates a chat handler backed by the given pipeline.
func NewChatHandler(pipeline ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{pipeline: pipeline, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/chat", h.handleChat)
}

// ChatRequest is the request body for POST /api/v1/chat.
// SessionID is optional: when empty a new session is created and its ID
// returned in the response. Language is optional and pins the response
// language, bypassing detection.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
	Language  string `json:"language,omitempty"`
}

func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}

	var sessionID uuid.UUID
	if req.SessionID != "" {
		id, err := uuid.Parse(req.SessionID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_session_id", "session_id must be a UUID", h.logger)
			return
		}
		sessionID = id
	}

	resp, err := h.pipeline.Handle(r.Context(), chat.Request{
		SessionID: sessionID,
		Message:   req.Message,
		Language:  req.Language,
	})
	if err != nil {
		h.writeChatError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp, h.logger)
}

// writeChatError maps pipeline sentinel errors to HTTP statuses. Anything
// unrecognized becomes an opaque 500 so internal details stay out of
// responses.
func (h *ChatHandler) writeChatError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "empty_message", "message must not be empty", h.logger)
	case errors.Is(err, chat.ErrMessageTooLong):
		writeError(w, http.StatusBadRequest, "message_too_long", "message exceeds maximum length", h.logger)
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", "unknown session", h.logger)
	case errors.Is(err, chat.ErrHistoryUnavailable):
		h.logger.Error("chat request failed", "error", err, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusServiceUnavailable, "history_unavailable", "conversation history temporarily unavailable", h.logger)
	default:
		h.logger.Error("chat request failed", "error", err, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to process message", h.logger)
	}
}
