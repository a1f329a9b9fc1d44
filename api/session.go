package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/sahayakbot/sahayak/internal/session"
)

// Session listing bounds.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
	MaxListOffset    = 100000
)

// SessionHandler serves session inspection and cleanup endpoints.
type SessionHandler struct {
	store  *session.Store
	logger *slog.Logger
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(store *session.Store, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{store: store, logger: logger}
}

// RegisterRoutes registers session routes on the given mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/sessions", h.list)
	mux.HandleFunc("GET /api/v1/sessions/{id}", h.get)
	mux.HandleFunc("GET /api/v1/sessions/{id}/turns", h.turns)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", h.delete)
}

// list returns sessions ordered by most recent activity.
// Query parameters: limit (default 20, max 100) and offset.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", DefaultListLimit, 1, MaxListLimit)
	offset := parseIntParam(r, "offset", 0, 0, MaxListOffset)

	sessions, err := h.store.List(r.Context(), int32(limit), int32(offset))
	if err != nil {
		h.logger.Error("list sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list sessions", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"total":    len(sessions),
		"limit":    limit,
		"offset":   offset,
	}, h.logger)
}

func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	sess, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "failed to load session")
		return
	}
	writeJSON(w, http.StatusOK, sess, h.logger)
}

// turns returns the most recent turns of a session in chronological order.
func (h *SessionHandler) turns(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	limit := parseIntParam(r, "limit", int(session.DefaultHistoryLimit), 1, int(session.MaxHistoryLimit))

	// Existence check first so an empty session and an unknown one are
	// distinguishable.
	if _, err := h.store.Get(r.Context(), id); err != nil {
		h.writeStoreError(w, err, "failed to load session")
		return
	}

	turns, err := h.store.History(r.Context(), id, int32(limit))
	if err != nil {
		h.writeStoreError(w, err, "failed to load turns")
		return
	}
	if turns == nil {
		turns = []*session.Turn{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id.String(),
		"turns":      turns,
		"total":      len(turns),
	}, h.logger)
}

func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.writeStoreError(w, err, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_session_id", "session id must be a UUID", h.logger)
		return uuid.Nil, false
	}
	return id, true
}

func (h *SessionHandler) writeStoreError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session_not_found", "unknown session", h.logger)
		return
	}
	h.logger.Error("session store error", "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", message, h.logger)
}
