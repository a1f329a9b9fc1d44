package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgx capabilities the queries need. Both *pgxpool.Pool
// and pgx.Tx satisfy it, so the same queries run inside or outside a
// transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries is the pgx-backed implementation of Querier.
type Queries struct {
	db DBTX
}

// NewQueries creates Queries over a pool or transaction.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns Queries bound to the given transaction.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// CreateSessionParams are the arguments for Querier.CreateSession.
type CreateSessionParams struct {
	ID       uuid.UUID
	Language string
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) (Session, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO sessions (id, language)
VALUES ($1, $2)
RETURNING id, language, created_at, last_active_at`,
		arg.ID, arg.Language)

	var s Session
	if err := row.Scan(&s.ID, &s.Language, &s.CreatedAt, &s.LastActiveAt); err != nil {
		return Session{}, err
	}
	return s, nil
}

func (q *Queries) GetSession(ctx context.Context, id uuid.UUID) (Session, error) {
	row := q.db.QueryRow(ctx, `
SELECT id, language, created_at, last_active_at
FROM sessions
WHERE id = $1`, id)

	var s Session
	if err := row.Scan(&s.ID, &s.Language, &s.CreatedAt, &s.LastActiveAt); err != nil {
		return Session{}, err
	}
	return s, nil
}

// LockSession takes the session row lock for the current transaction.
// Callers must hold an open transaction; outside one the lock is released
// immediately and provides no protection.
func (q *Queries) LockSession(ctx context.Context, id uuid.UUID) error {
	var locked uuid.UUID
	err := q.db.QueryRow(ctx, `SELECT id FROM sessions WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	return err
}

// TouchSession advances last_active_at and records the session language.
func (q *Queries) TouchSession(ctx context.Context, id uuid.UUID, language string) error {
	_, err := q.db.Exec(ctx, `
UPDATE sessions
SET last_active_at = now(), language = $2
WHERE id = $1`, id, language)
	return err
}

func (q *Queries) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// MaxSequence returns the highest sequence number in the session, 0 when the
// session has no turns yet.
func (q *Queries) MaxSequence(ctx context.Context, sessionID uuid.UUID) (int32, error) {
	var max int32
	err := q.db.QueryRow(ctx, `
SELECT COALESCE(MAX(sequence_number), 0)
FROM turns
WHERE session_id = $1`, sessionID).Scan(&max)
	return max, err
}

// AddTurnParams are the arguments for Querier.AddTurn.
type AddTurnParams struct {
	SessionID           uuid.UUID
	Sequence            int32
	Role                string
	Content             string
	OriginalContent     string
	OriginalLanguage    string
	ResponseLanguage    string
	Intent              string
	Confidence          float64
	Sources             []string
	TranslationDegraded bool
	GenerationDegraded  bool
	Escalated           bool
}

func (q *Queries) AddTurn(ctx context.Context, arg AddTurnParams) error {
	sources, err := json.Marshal(arg.Sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}

	_, err = q.db.Exec(ctx, `
INSERT INTO turns (
    session_id, sequence_number, role, content,
    original_content, original_language, response_language,
    intent, confidence, sources,
    translation_degraded, generation_degraded, escalated
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		arg.SessionID, arg.Sequence, arg.Role, arg.Content,
		arg.OriginalContent, arg.OriginalLanguage, arg.ResponseLanguage,
		arg.Intent, arg.Confidence, sources,
		arg.TranslationDegraded, arg.GenerationDegraded, arg.Escalated)
	return err
}

// GetTurnsParams are the arguments for Querier.GetTurns.
type GetTurnsParams struct {
	SessionID   uuid.UUID
	ResultLimit int32
}

// GetTurns returns the most recent ResultLimit turns in chronological order.
func (q *Queries) GetTurns(ctx context.Context, arg GetTurnsParams) ([]*Turn, error) {
	rows, err := q.db.Query(ctx, `
SELECT id, sequence_number, role, content,
       original_content, original_language, response_language,
       intent, confidence, sources,
       translation_degraded, generation_degraded, escalated, created_at
FROM (
    SELECT * FROM turns
    WHERE session_id = $1
    ORDER BY sequence_number DESC
    LIMIT $2
) recent
ORDER BY sequence_number ASC`,
		arg.SessionID, arg.ResultLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []*Turn
	for rows.Next() {
		var t Turn
		var sources []byte
		if err := rows.Scan(&t.ID, &t.Sequence, &t.Role, &t.Content,
			&t.OriginalContent, &t.OriginalLanguage, &t.ResponseLanguage,
			&t.Intent, &t.Confidence, &sources,
			&t.TranslationDegraded, &t.GenerationDegraded, &t.Escalated,
			&t.CreatedAt); err != nil {
			return nil, err
		}
		if len(sources) > 0 {
			if err := json.Unmarshal(sources, &t.Sources); err != nil {
				// Bad rows keep the turn usable with empty sources.
				t.Sources = nil
			}
		}
		turns = append(turns, &t)
	}
	return turns, rows.Err()
}

// SessionMeta is a history listing row.
type SessionMeta struct {
	ID           uuid.UUID `json:"id"`
	Language     string    `json:"language"`
	TurnCount    int64     `json:"turn_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// ListSessionsParams are the arguments for ListSessions.
type ListSessionsParams struct {
	ResultLimit  int32
	ResultOffset int32
}

func (q *Queries) ListSessions(ctx context.Context, arg ListSessionsParams) ([]SessionMeta, error) {
	rows, err := q.db.Query(ctx, `
SELECT s.id, s.language, count(t.id), s.created_at, s.last_active_at
FROM sessions s
LEFT JOIN turns t ON t.session_id = s.id
GROUP BY s.id
ORDER BY s.last_active_at DESC
LIMIT $1 OFFSET $2`,
		arg.ResultLimit, arg.ResultOffset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionMeta
	for rows.Next() {
		var m SessionMeta
		if err := rows.Scan(&m.ID, &m.Language, &m.TurnCount, &m.CreatedAt, &m.LastActiveAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
