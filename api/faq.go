package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sahayakbot/sahayak/internal/faq"
)

// FAQ validation constants.
const (
	MaxQuestionLength = 500
	MaxAnswerLength   = 10000
)

// FAQHandler serves the FAQ management endpoints used by campus staff.
type FAQHandler struct {
	store  *faq.Store
	logger *slog.Logger
}

// NewFAQHandler creates a FAQ handler.
func NewFAQHandler(store *faq.Store, logger *slog.Logger) *FAQHandler {
	return &FAQHandler{store: store, logger: logger}
}

// RegisterRoutes registers FAQ routes on the given mux.
func (h *FAQHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/faqs", h.list)
	mux.HandleFunc("POST /api/v1/faqs", h.create)
	mux.HandleFunc("GET /api/v1/faqs/{id}", h.get)
	mux.HandleFunc("PUT /api/v1/faqs/{id}", h.update)
	mux.HandleFunc("DELETE /api/v1/faqs/{id}", h.delete)
	mux.HandleFunc("POST /api/v1/faqs/reindex", h.reindex)
}

// FAQRequest is the request body for creating or updating an entry.
type FAQRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category,omitempty"`
	Language string `json:"language,omitempty"`
	Priority int32  `json:"priority,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
}

func (req *FAQRequest) toFAQ() faq.FAQ {
	f := faq.FAQ{
		Question: req.Question,
		Answer:   req.Answer,
		Category: req.Category,
		Language: req.Language,
		Priority: req.Priority,
		IsActive: true,
	}
	if req.IsActive != nil {
		f.IsActive = *req.IsActive
	}
	return f
}

// list returns FAQ entries, optionally filtered by category. Inactive
// entries are included only with ?active=false.
func (h *FAQHandler) list(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	activeOnly := r.URL.Query().Get("active") != "false"

	faqs, err := h.store.List(r.Context(), category, activeOnly)
	if err != nil {
		h.logger.Error("list faqs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list faqs", h.logger)
		return
	}
	if faqs == nil {
		faqs = []faq.FAQ{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"faqs":  faqs,
		"total": len(faqs),
	}, h.logger)
}

func (h *FAQHandler) create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	created, err := h.store.Create(r.Context(), req.toFAQ())
	if err != nil {
		h.writeStoreError(w, err, "failed to create faq")
		return
	}
	writeJSON(w, http.StatusCreated, created, h.logger)
}

func (h *FAQHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.faqID(w, r)
	if !ok {
		return
	}

	f, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "failed to load faq")
		return
	}
	writeJSON(w, http.StatusOK, f, h.logger)
}

func (h *FAQHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.faqID(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	updated, err := h.store.Update(r.Context(), id, req.toFAQ())
	if err != nil {
		h.writeStoreError(w, err, "failed to update faq")
		return
	}
	writeJSON(w, http.StatusOK, updated, h.logger)
}

func (h *FAQHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.faqID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.writeStoreError(w, err, "failed to delete faq")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reindex rebuilds search embeddings for every active entry. Intended for
// recovery after embedding model changes or index corruption.
func (h *FAQHandler) reindex(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.ReindexAll(r.Context())
	if err != nil {
		h.logger.Error("reindex faqs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to reindex faqs", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reindexed": n}, h.logger)
}

func (h *FAQHandler) decode(w http.ResponseWriter, r *http.Request) (*FAQRequest, bool) {
	var req FAQRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return nil, false
	}
	if len(req.Question) > MaxQuestionLength {
		writeError(w, http.StatusBadRequest, "question_too_long", "question exceeds maximum length", h.logger)
		return nil, false
	}
	if len(req.Answer) > MaxAnswerLength {
		writeError(w, http.StatusBadRequest, "answer_too_long", "answer exceeds maximum length", h.logger)
		return nil, false
	}
	return &req, true
}

func (h *FAQHandler) faqID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_faq_id", "faq id must be a positive integer", h.logger)
		return 0, false
	}
	return id, true
}

func (h *FAQHandler) writeStoreError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, faq.ErrNotFound):
		writeError(w, http.StatusNotFound, "faq_not_found", "unknown faq", h.logger)
	case errors.Is(err, faq.ErrEmptyContent):
		writeError(w, http.StatusBadRequest, "empty_content", "question and answer must not be empty", h.logger)
	default:
		h.logger.Error("faq store error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", message, h.logger)
	}
}
