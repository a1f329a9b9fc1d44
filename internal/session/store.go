// Package session persists conversations and their turns in PostgreSQL.
//
// Turns within a session are strictly ordered by sequence number. Appends go
// through a transaction that locks the session row, so concurrent requests
// against the same session serialize at the database and interleaved turns
// never share a sequence number.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier defines the database operations the Store depends on.
// The interface is defined by the consumer; the pgx implementation lives in
// queries.go and tests supply mocks.
type Querier interface {
	CreateSession(ctx context.Context, arg CreateSessionParams) (Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (Session, error)
	TouchSession(ctx context.Context, id uuid.UUID, language string) error
	DeleteSession(ctx context.Context, id uuid.UUID) error
	MaxSequence(ctx context.Context, sessionID uuid.UUID) (int32, error)
	AddTurn(ctx context.Context, arg AddTurnParams) error
	GetTurns(ctx context.Context, arg GetTurnsParams) ([]*Turn, error)
	ListSessions(ctx context.Context, arg ListSessionsParams) ([]SessionMeta, error)
}

// Store manages session persistence with a PostgreSQL backend.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries Querier
	pool    *pgxpool.Pool // transaction support; nil in mock-backed tests
	logger  *slog.Logger
}

// New creates a Store. pool may be nil for tests with a mock querier, which
// disables the transactional append path. logger may be nil.
func New(querier Querier, pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		queries: querier,
		pool:    pool,
		logger:  logger,
	}
}

// Create starts a new session in the given language and returns it.
func (s *Store) Create(ctx context.Context, language string) (*Session, error) {
	created, err := s.queries.CreateSession(ctx, CreateSessionParams{
		ID:       uuid.New(),
		Language: language,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Debug("created session", "id", created.ID, "language", created.Language)
	return &created, nil
}

// Get retrieves a session by ID. Returns ErrNotFound for unknown sessions.
func (s *Store) Get(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	sess, err := s.queries.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	return &sess, nil
}

// History returns the most recent turns of a session in chronological order.
// limit <= 0 uses DefaultHistoryLimit.
func (s *Store) History(ctx context.Context, sessionID uuid.UUID, limit int32) ([]*Turn, error) {
	turns, err := s.queries.GetTurns(ctx, GetTurnsParams{
		SessionID:   sessionID,
		ResultLimit: NormalizeHistoryLimit(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", sessionID, err)
	}
	return turns, nil
}

// AppendTurns appends turns to a session, assigning consecutive sequence
// numbers after the current maximum, and advances the session's activity
// timestamp. language updates the session language to the student's latest.
//
// The whole append runs in one transaction holding the session row lock, so
// two concurrent appends to the same session cannot interleave sequence
// numbers.
func (s *Store) AppendTurns(ctx context.Context, sessionID uuid.UUID, language string, turns []*Turn) error {
	if len(turns) == 0 {
		return nil
	}
	for i, t := range turns {
		if t.Role != RoleUser && t.Role != RoleAssistant {
			return fmt.Errorf("turn %d role %q: %w", i, t.Role, ErrInvalidRole)
		}
	}

	// Mock-backed tests have no pool; callers there guarantee serialization.
	if s.pool == nil {
		return s.appendTurns(ctx, s.queries, sessionID, language, turns)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	txQueries := NewQueries(tx)
	if err := txQueries.LockSession(ctx, sessionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
		return fmt.Errorf("lock session: %w", err)
	}

	if err := s.appendTurns(ctx, txQueries, sessionID, language, turns); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Debug("appended turns", "session_id", sessionID, "count", len(turns))
	return nil
}

func (s *Store) appendTurns(ctx context.Context, q Querier, sessionID uuid.UUID, language string, turns []*Turn) error {
	maxSeq, err := q.MaxSequence(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("read max sequence: %w", err)
	}

	for i, t := range turns {
		seq := maxSeq + int32(i) + 1 // #nosec G115 -- i bounded by slice length
		if err := q.AddTurn(ctx, AddTurnParams{
			SessionID:           sessionID,
			Sequence:            seq,
			Role:                t.Role,
			Content:             t.Content,
			OriginalContent:     t.OriginalContent,
			OriginalLanguage:    t.OriginalLanguage,
			ResponseLanguage:    t.ResponseLanguage,
			Intent:              t.Intent,
			Confidence:          t.Confidence,
			Sources:             t.Sources,
			TranslationDegraded: t.TranslationDegraded,
			GenerationDegraded:  t.GenerationDegraded,
			Escalated:           t.Escalated,
		}); err != nil {
			return fmt.Errorf("insert turn %d: %w", i, err)
		}
		t.Sequence = seq
	}

	if err := q.TouchSession(ctx, sessionID, language); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// Delete removes a session and all its turns.
func (s *Store) Delete(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.queries.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	s.logger.Debug("deleted session", "id", sessionID)
	return nil
}

// List returns session metadata ordered by recent activity.
func (s *Store) List(ctx context.Context, limit, offset int32) ([]SessionMeta, error) {
	if limit <= 0 {
		limit = 20
	}
	metas, err := s.queries.ListSessions(ctx, ListSessionsParams{
		ResultLimit:  limit,
		ResultOffset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return metas, nil
}
