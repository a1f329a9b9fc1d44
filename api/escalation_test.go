package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sahayakbot/sahayak/internal/escalate"
	"github.com/sahayakbot/sahayak/internal/log"
)

// escalationQuerier is an in-memory escalate.Querier for handler tests.
type escalationQuerier struct {
	escalations []escalate.Escalation
	nextID      int64
	resolved    map[int64]string
}

func newEscalationQuerier() *escalationQuerier {
	return &escalationQuerier{nextID: 1, resolved: make(map[int64]string)}
}

func (q *escalationQuerier) InsertEscalation(_ context.Context, sessionID uuid.UUID, reason string) (escalate.Escalation, error) {
	esc := escalate.Escalation{
		ID:        q.nextID,
		SessionID: sessionID,
		Reason:    reason,
		Status:    escalate.StatusPending,
		CreatedAt: time.Now(),
	}
	q.escalations = append(q.escalations, esc)
	q.nextID++
	return esc, nil
}

func (q *escalationQuerier) ListEscalations(_ context.Context, arg escalate.ListEscalationsParams) ([]escalate.Escalation, error) {
	var out []escalate.Escalation
	for _, esc := range q.escalations {
		if arg.Status != "" && esc.Status != arg.Status {
			continue
		}
		out = append(out, esc)
		if int32(len(out)) == arg.ResultLimit {
			break
		}
	}
	return out, nil
}

func (q *escalationQuerier) ResolveEscalation(_ context.Context, id int64, assignedTo string) (int64, error) {
	for i, esc := range q.escalations {
		if esc.ID == id && esc.Status == escalate.StatusPending {
			q.escalations[i].Status = escalate.StatusResolved
			q.resolved[id] = assignedTo
			return 1, nil
		}
	}
	return 0, nil
}

func newEscalationServer(q *escalationQuerier) http.Handler {
	store := escalate.New(q, log.NewNop())
	return NewServer(ServerConfig{
		Pipeline:      &mockChat{},
		Escalations:   store,
		Logger:        log.NewNop(),
		RatePerSecond: 1000,
		RateBurst:     1000,
	}).Handler()
}

func TestEscalationList(t *testing.T) {
	q := newEscalationQuerier()
	_, _ = q.InsertEscalation(context.Background(), uuid.New(), escalate.ReasonLowConfidence)
	_, _ = q.InsertEscalation(context.Background(), uuid.New(), escalate.ReasonExplicitRequest)
	q.escalations[1].Status = escalate.StatusResolved
	handler := newEscalationServer(q)

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/escalations?status=pending")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Escalations []escalate.Escalation `json:"escalations"`
		Total       int                   `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 {
		t.Fatalf("total = %d, want 1 pending", resp.Total)
	}
	if resp.Escalations[0].Reason != escalate.ReasonLowConfidence {
		t.Errorf("reason = %q", resp.Escalations[0].Reason)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/v1/escalations?status=bogus")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus status filter = %d, want 400", rec.Code)
	}
}

func TestEscalationListEmptyIsArray(t *testing.T) {
	rec := doRequest(t, newEscalationServer(newEscalationQuerier()), http.MethodGet, "/api/v1/escalations")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(resp["escalations"]) == "null" {
		t.Error("escalations serialized as null, want []")
	}
}

func TestEscalationResolve(t *testing.T) {
	q := newEscalationQuerier()
	_, _ = q.InsertEscalation(context.Background(), uuid.New(), escalate.ReasonGenerationFailure)
	handler := newEscalationServer(q)

	body := `{"assigned_to": "helpdesk"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/escalations/1/resolve", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	if q.resolved[1] != "helpdesk" {
		t.Errorf("assigned_to = %q", q.resolved[1])
	}

	// Already resolved: queue only moves forward.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/escalations/1/resolve", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("re-resolve status = %d, want 404", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/escalations/nope/resolve", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
}
