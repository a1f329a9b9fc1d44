// Package escalate records conversations handed off to human staff.
//
// An escalation is opened when the pipeline cannot serve a trustworthy
// answer (generation failed, retrieval found nothing relevant) or when the
// student asks for a person. Staff work the pending queue and resolve
// entries once handled.
package escalate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Reason codes for opening an escalation.
const (
	// ReasonGenerationFailure: the model could not produce an answer after
	// retries and the student received canned fallback text.
	ReasonGenerationFailure = "generation_failure"

	// ReasonLowConfidence: an answer was produced but scored below the
	// confidence threshold.
	ReasonLowConfidence = "low_confidence"

	// ReasonExplicitRequest: the student asked for a human.
	ReasonExplicitRequest = "explicit_request"
)

// Escalation statuses.
const (
	StatusPending  = "pending"
	StatusResolved = "resolved"
)

// Sentinel errors. Check with errors.Is.
var (
	ErrNotFound      = errors.New("escalation not found")
	ErrInvalidReason = errors.New("invalid escalation reason")
	ErrInvalidStatus = errors.New("invalid escalation status")
)

// Escalation is one handoff record.
type Escalation struct {
	ID         int64      `json:"id"`
	SessionID  uuid.UUID  `json:"session_id"`
	Reason     string     `json:"reason"`
	Status     string     `json:"status"`
	AssignedTo string     `json:"assigned_to,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// ValidReason reports whether reason is a known reason code.
func ValidReason(reason string) bool {
	switch reason {
	case ReasonGenerationFailure, ReasonLowConfidence, ReasonExplicitRequest:
		return true
	}
	return false
}

// Querier defines the database operations the Store depends on.
type Querier interface {
	InsertEscalation(ctx context.Context, sessionID uuid.UUID, reason string) (Escalation, error)
	ListEscalations(ctx context.Context, arg ListEscalationsParams) ([]Escalation, error)
	ResolveEscalation(ctx context.Context, id int64, assignedTo string) (int64, error)
}

// Store manages escalation records.
type Store struct {
	queries Querier
	logger  *slog.Logger
}

// New creates a Store. logger may be nil.
func New(querier Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{queries: querier, logger: logger}
}

// Open creates a pending escalation for a session.
func (s *Store) Open(ctx context.Context, sessionID uuid.UUID, reason string) (*Escalation, error) {
	if !ValidReason(reason) {
		return nil, fmt.Errorf("reason %q: %w", reason, ErrInvalidReason)
	}

	esc, err := s.queries.InsertEscalation(ctx, sessionID, reason)
	if err != nil {
		return nil, fmt.Errorf("open escalation: %w", err)
	}

	s.logger.Info("escalation opened",
		"id", esc.ID, "session_id", sessionID, "reason", reason)
	return &esc, nil
}

// List returns escalations, optionally filtered by status (empty = all),
// newest first.
func (s *Store) List(ctx context.Context, status string, limit int32) ([]Escalation, error) {
	if status != "" && status != StatusPending && status != StatusResolved {
		return nil, fmt.Errorf("status %q: %w", status, ErrInvalidStatus)
	}
	if limit <= 0 {
		limit = 50
	}

	escs, err := s.queries.ListEscalations(ctx, ListEscalationsParams{
		Status:      status,
		ResultLimit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}
	return escs, nil
}

// Resolve marks an escalation handled and records who handled it.
// Returns ErrNotFound for unknown IDs.
func (s *Store) Resolve(ctx context.Context, id int64, assignedTo string) error {
	affected, err := s.queries.ResolveEscalation(ctx, id, assignedTo)
	if err != nil {
		return fmt.Errorf("resolve escalation %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("escalation %d: %w", id, ErrNotFound)
	}

	s.logger.Info("escalation resolved", "id", id, "assigned_to", assignedTo)
	return nil
}
