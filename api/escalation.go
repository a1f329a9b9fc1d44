package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sahayakbot/sahayak/internal/escalate"
)

// MaxEscalationLimit bounds the escalation list page size.
const MaxEscalationLimit = 200

// EscalationHandler serves the staff queue of conversations flagged for
// human follow-up.
type EscalationHandler struct {
	store  *escalate.Store
	logger *slog.Logger
}

// NewEscalationHandler creates an escalation handler.
func NewEscalationHandler(store *escalate.Store, logger *slog.Logger) *EscalationHandler {
	return &EscalationHandler{store: store, logger: logger}
}

// RegisterRoutes registers escalation routes on the given mux.
func (h *EscalationHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/escalations", h.list)
	mux.HandleFunc("POST /api/v1/escalations/{id}/resolve", h.resolve)
}

// list returns escalations, newest first. Query parameters: status
// (pending or resolved) and limit.
func (h *EscalationHandler) list(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := parseIntParam(r, "limit", 50, 1, MaxEscalationLimit)

	escalations, err := h.store.List(r.Context(), status, int32(limit))
	if err != nil {
		if errors.Is(err, escalate.ErrInvalidStatus) {
			writeError(w, http.StatusBadRequest, "invalid_status", "status must be pending or resolved", h.logger)
			return
		}
		h.logger.Error("list escalations", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list escalations", h.logger)
		return
	}
	if escalations == nil {
		escalations = []escalate.Escalation{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"escalations": escalations,
		"total":       len(escalations),
	}, h.logger)
}

// ResolveRequest is the request body for resolving an escalation.
type ResolveRequest struct {
	AssignedTo string `json:"assigned_to,omitempty"`
}

// resolve marks a pending escalation as handled. Resolving an already
// resolved entry returns 404, the queue only moves forward.
func (h *EscalationHandler) resolve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_escalation_id", "escalation id must be a positive integer", h.logger)
		return
	}

	var req ResolveRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
			return
		}
	}

	if err := h.store.Resolve(r.Context(), id, req.AssignedTo); err != nil {
		if errors.Is(err, escalate.ErrNotFound) {
			writeError(w, http.StatusNotFound, "escalation_not_found", "no pending escalation with that id", h.logger)
			return
		}
		h.logger.Error("resolve escalation", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to resolve escalation", h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
