// Package knowledge manages the institution knowledge base: indexing FAQ and
// document chunks with vector embeddings, and semantic search over them using
// PostgreSQL + pgvector.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"
)

// Querier defines the database operations the Store depends on.
// Following Go convention, the interface is defined by the consumer; the
// pgx-backed implementation lives in queries.go and tests supply mocks.
type Querier interface {
	// UpsertChunk inserts or updates an indexed chunk.
	UpsertChunk(ctx context.Context, arg UpsertChunkParams) error

	// SearchChunks performs vector similarity search.
	SearchChunks(ctx context.Context, arg SearchChunksParams) ([]SearchChunksRow, error)

	// DeleteChunksBySource removes all chunks belonging to a source.
	DeleteChunksBySource(ctx context.Context, sourceID string) error

	// CountChunks counts all indexed chunks.
	CountChunks(ctx context.Context) (int64, error)
}

// Store manages knowledge chunks with vector search capabilities.
// It handles embedding generation and similarity search.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a new Store instance.
// logger may be nil (defaults to slog.Default()).
func New(querier Querier, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// Index replaces the indexed chunks for a source with the given contents.
// Each content becomes one chunk with id "<sourceID>#<n>"; embeddings are
// generated via the configured embedder. Returns the number of chunks
// indexed.
func (s *Store) Index(ctx context.Context, sourceID, sourceType, title string, contents []string) (int, error) {
	if sourceID == "" {
		return 0, fmt.Errorf("sourceID must not be empty")
	}
	if sourceType != SourceTypeFAQ && sourceType != SourceTypeDocument {
		return 0, fmt.Errorf("invalid sourceType %q", sourceType)
	}

	// Drop stale chunks first so shrinking sources leave no orphans.
	if err := s.queries.DeleteChunksBySource(ctx, sourceID); err != nil {
		return 0, fmt.Errorf("clearing chunks for %q: %w", sourceID, err)
	}

	indexed := 0
	for i, content := range contents {
		if content == "" {
			continue
		}
		embedding, err := s.embed(ctx, content)
		if err != nil {
			return indexed, fmt.Errorf("embedding chunk %d of %q: %w", i, sourceID, err)
		}
		if err := s.queries.UpsertChunk(ctx, UpsertChunkParams{
			ID:         fmt.Sprintf("%s#%d", sourceID, i),
			SourceID:   sourceID,
			SourceType: sourceType,
			Title:      title,
			Content:    content,
			Embedding:  embedding,
		}); err != nil {
			return indexed, fmt.Errorf("upserting chunk %d of %q: %w", i, sourceID, err)
		}
		indexed++
	}

	s.logger.Debug("indexed source", "source_id", sourceID, "chunks", indexed)
	return indexed, nil
}

// Search performs semantic search over the knowledge base.
// It returns the most similar chunks to the query, ordered by non-increasing
// similarity, at most topK results. A query matching nothing returns an
// empty slice and no error.
//
// Example:
//
//	results, err := store.Search(ctx, "library hours",
//	    knowledge.WithTopK(5),
//	    knowledge.WithMinScore(0.3))
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	embedding, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding generation timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.queries.SearchChunks(queryCtx, SearchChunksParams{
		QueryEmbedding: embedding,
		SourceType:     cfg.sourceType,
		MinScore:       cfg.minScore,
		ResultLimit:    int32(cfg.topK), // #nosec G115 -- topK validated by config
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, Result{
			Chunk: Chunk{
				ID:         row.ID,
				SourceID:   row.SourceID,
				SourceType: row.SourceType,
				Title:      row.Title,
				Content:    row.Content,
				CreatedAt:  row.CreatedAt,
			},
			Similarity: row.Similarity,
		})
	}
	return results, nil
}

// RemoveSource deletes all indexed chunks belonging to a source.
func (s *Store) RemoveSource(ctx context.Context, sourceID string) error {
	if err := s.queries.DeleteChunksBySource(ctx, sourceID); err != nil {
		return fmt.Errorf("removing source %q: %w", sourceID, err)
	}
	s.logger.Debug("removed source", "source_id", sourceID)
	return nil
}

// Count returns the total number of indexed chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.queries.CountChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return int(n), nil
}

// embed generates the embedding vector for a single text.
func (s *Store) embed(ctx context.Context, text string) (*pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}
	v := pgvector.NewVector(resp.Embeddings[0].Embedding)
	return &v, nil
}
