package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// UpsertChunkParams are the arguments for Querier.UpsertChunk.
type UpsertChunkParams struct {
	ID         string
	SourceID   string
	SourceType string
	Title      string
	Content    string
	Embedding  *pgvector.Vector
}

// SearchChunksParams are the arguments for Querier.SearchChunks.
// An empty SourceType searches all source types.
type SearchChunksParams struct {
	QueryEmbedding *pgvector.Vector
	SourceType     string
	MinScore       float64
	ResultLimit    int32
}

// SearchChunksRow is one vector search result row.
type SearchChunksRow struct {
	ID         string
	SourceID   string
	SourceType string
	Title      string
	Content    string
	CreatedAt  time.Time
	Similarity float64
}

// PGQuerier implements Querier over a pgx connection pool.
type PGQuerier struct {
	pool *pgxpool.Pool
}

// NewPGQuerier creates a Querier backed by PostgreSQL.
func NewPGQuerier(pool *pgxpool.Pool) *PGQuerier {
	return &PGQuerier{pool: pool}
}

const upsertChunkSQL = `
INSERT INTO knowledge_chunks (id, source_id, source_type, title, content, embedding)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    source_id   = EXCLUDED.source_id,
    source_type = EXCLUDED.source_type,
    title       = EXCLUDED.title,
    content     = EXCLUDED.content,
    embedding   = EXCLUDED.embedding`

// UpsertChunk inserts or updates an indexed chunk.
func (q *PGQuerier) UpsertChunk(ctx context.Context, arg UpsertChunkParams) error {
	_, err := q.pool.Exec(ctx, upsertChunkSQL,
		arg.ID, arg.SourceID, arg.SourceType, arg.Title, arg.Content, arg.Embedding)
	if err != nil {
		return fmt.Errorf("upsert chunk: %w", err)
	}
	return nil
}

// Cosine similarity is 1 - cosine distance; the <=> operator plus the hnsw
// index keeps ordering work inside PostgreSQL. $2 = '' disables the
// source_type filter.
const searchChunksSQL = `
SELECT id, source_id, source_type, title, content, created_at,
       1 - (embedding <=> $1) AS similarity
FROM knowledge_chunks
WHERE ($2 = '' OR source_type = $2)
  AND 1 - (embedding <=> $1) >= $3
ORDER BY embedding <=> $1
LIMIT $4`

// SearchChunks performs vector similarity search ordered by non-increasing
// similarity.
func (q *PGQuerier) SearchChunks(ctx context.Context, arg SearchChunksParams) ([]SearchChunksRow, error) {
	rows, err := q.pool.Query(ctx, searchChunksSQL,
		arg.QueryEmbedding, arg.SourceType, arg.MinScore, arg.ResultLimit)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	var out []SearchChunksRow
	for rows.Next() {
		var r SearchChunksRow
		if err := rows.Scan(&r.ID, &r.SourceID, &r.SourceType, &r.Title,
			&r.Content, &r.CreatedAt, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk rows: %w", err)
	}
	return out, nil
}

// DeleteChunksBySource removes all chunks belonging to a source.
func (q *PGQuerier) DeleteChunksBySource(ctx context.Context, sourceID string) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM knowledge_chunks WHERE source_id = $1`, sourceID)
	if err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

// CountChunks counts all indexed chunks.
func (q *PGQuerier) CountChunks(ctx context.Context) (int64, error) {
	var n int64
	if err := q.pool.QueryRow(ctx, `SELECT count(*) FROM knowledge_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}
