package escalate

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ListEscalationsParams are the arguments for Querier.ListEscalations.
type ListEscalationsParams struct {
	Status      string // empty matches all statuses
	ResultLimit int32
}

// PGQuerier implements Querier over a pgx connection pool.
type PGQuerier struct {
	pool *pgxpool.Pool
}

// NewPGQuerier creates a Querier backed by PostgreSQL.
func NewPGQuerier(pool *pgxpool.Pool) *PGQuerier {
	return &PGQuerier{pool: pool}
}

func (q *PGQuerier) InsertEscalation(ctx context.Context, sessionID uuid.UUID, reason string) (Escalation, error) {
	row := q.pool.QueryRow(ctx, `
INSERT INTO escalations (session_id, reason, status)
VALUES ($1, $2, 'pending')
RETURNING id, session_id, reason, status, COALESCE(assigned_to, ''), created_at, resolved_at`,
		sessionID, reason)

	var e Escalation
	if err := row.Scan(&e.ID, &e.SessionID, &e.Reason, &e.Status,
		&e.AssignedTo, &e.CreatedAt, &e.ResolvedAt); err != nil {
		return Escalation{}, err
	}
	return e, nil
}

func (q *PGQuerier) ListEscalations(ctx context.Context, arg ListEscalationsParams) ([]Escalation, error) {
	rows, err := q.pool.Query(ctx, `
SELECT id, session_id, reason, status, COALESCE(assigned_to, ''), created_at, resolved_at
FROM escalations
WHERE ($1 = '' OR status = $1)
ORDER BY created_at DESC
LIMIT $2`,
		arg.Status, arg.ResultLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Escalation
	for rows.Next() {
		var e Escalation
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Reason, &e.Status,
			&e.AssignedTo, &e.CreatedAt, &e.ResolvedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q *PGQuerier) ResolveEscalation(ctx context.Context, id int64, assignedTo string) (int64, error) {
	tag, err := q.pool.Exec(ctx, `
UPDATE escalations
SET status = 'resolved', assigned_to = NULLIF($2, ''), resolved_at = now()
WHERE id = $1 AND status = 'pending'`,
		id, assignedTo)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
