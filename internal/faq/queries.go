package faq

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UpsertFAQParams are the writable fields of an FAQ entry.
type UpsertFAQParams struct {
	Question string
	Answer   string
	Category string
	Language string
	Priority int32
	IsActive bool
}

// ListFAQsParams are the arguments for Querier.ListFAQs.
type ListFAQsParams struct {
	Category   string // empty matches all categories
	ActiveOnly bool
}

// PGQuerier implements Querier over a pgx connection pool.
type PGQuerier struct {
	pool *pgxpool.Pool
}

// NewPGQuerier creates a Querier backed by PostgreSQL.
func NewPGQuerier(pool *pgxpool.Pool) *PGQuerier {
	return &PGQuerier{pool: pool}
}

const faqColumns = `id, question, answer, COALESCE(category, ''), language, priority, is_active, created_at, updated_at`

func scanFAQ(row pgx.Row) (FAQ, error) {
	var f FAQ
	err := row.Scan(&f.ID, &f.Question, &f.Answer, &f.Category,
		&f.Language, &f.Priority, &f.IsActive, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

func (q *PGQuerier) InsertFAQ(ctx context.Context, arg UpsertFAQParams) (FAQ, error) {
	row := q.pool.QueryRow(ctx, `
INSERT INTO faqs (question, answer, category, language, priority, is_active)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
RETURNING `+faqColumns,
		arg.Question, arg.Answer, arg.Category, arg.Language, arg.Priority, arg.IsActive)
	return scanFAQ(row)
}

func (q *PGQuerier) UpdateFAQ(ctx context.Context, id int64, arg UpsertFAQParams) (FAQ, error) {
	row := q.pool.QueryRow(ctx, `
UPDATE faqs
SET question = $2, answer = $3, category = NULLIF($4, ''), language = $5,
    priority = $6, is_active = $7, updated_at = now()
WHERE id = $1
RETURNING `+faqColumns,
		id, arg.Question, arg.Answer, arg.Category, arg.Language, arg.Priority, arg.IsActive)

	f, err := scanFAQ(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return FAQ{}, fmt.Errorf("%w", ErrNotFound)
	}
	return f, err
}

func (q *PGQuerier) GetFAQ(ctx context.Context, id int64) (FAQ, error) {
	row := q.pool.QueryRow(ctx, `SELECT `+faqColumns+` FROM faqs WHERE id = $1`, id)

	f, err := scanFAQ(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return FAQ{}, fmt.Errorf("%w", ErrNotFound)
	}
	return f, err
}

func (q *PGQuerier) ListFAQs(ctx context.Context, arg ListFAQsParams) ([]FAQ, error) {
	rows, err := q.pool.Query(ctx, `
SELECT `+faqColumns+`
FROM faqs
WHERE ($1 = '' OR category = $1)
  AND (NOT $2 OR is_active)
ORDER BY priority DESC, updated_at DESC`,
		arg.Category, arg.ActiveOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FAQ
	for rows.Next() {
		f, err := scanFAQ(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (q *PGQuerier) DeleteFAQ(ctx context.Context, id int64) (int64, error) {
	tag, err := q.pool.Exec(ctx, `DELETE FROM faqs WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
