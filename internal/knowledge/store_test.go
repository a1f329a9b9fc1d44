package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// mockEmbedder implements ai.Embedder for testing
type mockEmbedder struct {
	delay         time.Duration // simulate processing delay
	embedErr      error         // error to return
	returnEmpty   bool          // return empty embeddings
	embeddings    []float32     // custom embeddings to return
	callCount     int           // track number of calls
	lastInputText string        // track last input for verification
}

func (m *mockEmbedder) Name() string {
	return "mock-embedder"
}

func (m *mockEmbedder) Register(r api.Registry) {}

func (m *mockEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.callCount++

	if len(req.Input) > 0 && len(req.Input[0].Content) > 0 {
		m.lastInputText = req.Input[0].Content[0].Text
	}

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.embedErr != nil {
		return nil, m.embedErr
	}

	if m.returnEmpty {
		return &ai.EmbedResponse{
			Embeddings: []*ai.Embedding{{Embedding: []float32{}}},
		}, nil
	}

	embeddings := m.embeddings
	if embeddings == nil {
		embeddings = []float32{0.1, 0.2, 0.3}
	}
	return &ai.EmbedResponse{
		Embeddings: []*ai.Embedding{{Embedding: embeddings}},
	}, nil
}

// mockQuerier implements Querier for testing
type mockQuerier struct {
	upsertErr error
	searchErr error
	deleteErr error
	countErr  error

	searchResults []SearchChunksRow
	countResult   int64

	upsertCalls      int
	searchCalls      int
	deleteCalls      int
	countCalls       int
	lastDeletedID    string
	upsertParams     []UpsertChunkParams
	lastSearchParams SearchChunksParams
}

func (m *mockQuerier) UpsertChunk(ctx context.Context, arg UpsertChunkParams) error {
	m.upsertCalls++
	m.upsertParams = append(m.upsertParams, arg)
	return m.upsertErr
}

func (m *mockQuerier) SearchChunks(ctx context.Context, arg SearchChunksParams) ([]SearchChunksRow, error) {
	m.searchCalls++
	m.lastSearchParams = arg
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchResults, nil
}

func (m *mockQuerier) DeleteChunksBySource(ctx context.Context, sourceID string) error {
	m.deleteCalls++
	m.lastDeletedID = sourceID
	return m.deleteErr
}

func (m *mockQuerier) CountChunks(ctx context.Context) (int64, error) {
	m.countCalls++
	return m.countResult, m.countErr
}

func TestStore_Index(t *testing.T) {
	querier := &mockQuerier{}
	embedder := &mockEmbedder{embeddings: []float32{0.5, 0.6, 0.7}}

	store := New(querier, embedder, nil)

	n, err := store.Index(context.Background(), "faq-42", SourceTypeFAQ,
		"Library hours", []string{"The library is open 8am-10pm.", "", "Weekend hours differ."})
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	if n != 2 {
		t.Errorf("expected 2 chunks indexed (empty content skipped), got %d", n)
	}

	// Old chunks must be cleared before re-indexing.
	if querier.deleteCalls != 1 || querier.lastDeletedID != "faq-42" {
		t.Errorf("expected DeleteChunksBySource(faq-42) once, got %d calls for %q",
			querier.deleteCalls, querier.lastDeletedID)
	}

	if querier.upsertCalls != 2 {
		t.Fatalf("expected 2 upserts, got %d", querier.upsertCalls)
	}

	first := querier.upsertParams[0]
	if first.ID != "faq-42#0" {
		t.Errorf("chunk ID mismatch: got %q, want %q", first.ID, "faq-42#0")
	}
	if first.SourceType != SourceTypeFAQ {
		t.Errorf("source type mismatch: got %q", first.SourceType)
	}
	if first.Embedding == nil || len(first.Embedding.Slice()) != 3 {
		t.Error("embedding not propagated to upsert params")
	}

	// The non-empty chunk after the skipped one keeps its original position.
	if querier.upsertParams[1].ID != "faq-42#2" {
		t.Errorf("second chunk ID mismatch: got %q", querier.upsertParams[1].ID)
	}
}

func TestStore_Index_InvalidInput(t *testing.T) {
	tests := []struct {
		name       string
		sourceID   string
		sourceType string
	}{
		{"empty source ID", "", SourceTypeFAQ},
		{"unknown source type", "faq-1", "webpage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			querier := &mockQuerier{}
			store := New(querier, &mockEmbedder{}, nil)

			_, err := store.Index(context.Background(), tt.sourceID, tt.sourceType, "t", []string{"x"})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if querier.upsertCalls > 0 || querier.deleteCalls > 0 {
				t.Error("no database calls expected on validation failure")
			}
		})
	}
}

func TestStore_Index_EmbeddingError(t *testing.T) {
	querier := &mockQuerier{}
	embedder := &mockEmbedder{embedErr: errors.New("embedding service unavailable")}

	store := New(querier, embedder, nil)

	_, err := store.Index(context.Background(), "doc-1", SourceTypeDocument, "t", []string{"content"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "embedding chunk 0") {
		t.Errorf("unexpected error: %v", err)
	}
	if querier.upsertCalls > 0 {
		t.Error("upsert should not be called when embedding fails")
	}
}

func TestStore_Index_UpsertError(t *testing.T) {
	querier := &mockQuerier{upsertErr: errors.New("database connection lost")}
	store := New(querier, &mockEmbedder{}, nil)

	_, err := store.Index(context.Background(), "doc-1", SourceTypeDocument, "t", []string{"content"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "database connection lost") {
		t.Errorf("error should wrap original error: %v", err)
	}
}

func TestStore_Search(t *testing.T) {
	querier := &mockQuerier{
		searchResults: []SearchChunksRow{
			{
				ID:         "faq-7#0",
				SourceID:   "faq-7",
				SourceType: SourceTypeFAQ,
				Title:      "Library hours",
				Content:    "The library is open 8am-10pm Monday through Friday.",
				CreatedAt:  time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
				Similarity: 0.91,
			},
			{
				ID:         "doc-3#2",
				SourceID:   "doc-3",
				SourceType: SourceTypeDocument,
				Title:      "Campus guide",
				Content:    "Study rooms can be booked online.",
				CreatedAt:  time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC),
				Similarity: 0.74,
			},
		},
	}
	embedder := &mockEmbedder{}

	store := New(querier, embedder, nil)

	results, err := store.Search(context.Background(), "when is the library open",
		WithTopK(3), WithMinScore(0.3))
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	if results[0].Chunk.ID != "faq-7#0" {
		t.Errorf("first result ID mismatch: got %q", results[0].Chunk.ID)
	}
	if results[0].Similarity != 0.91 {
		t.Errorf("first result similarity mismatch: got %f", results[0].Similarity)
	}

	if embedder.lastInputText != "when is the library open" {
		t.Errorf("embedder received wrong query: %q", embedder.lastInputText)
	}

	if querier.lastSearchParams.ResultLimit != 3 {
		t.Errorf("expected ResultLimit=3, got %d", querier.lastSearchParams.ResultLimit)
	}
	if querier.lastSearchParams.MinScore != 0.3 {
		t.Errorf("expected MinScore=0.3, got %f", querier.lastSearchParams.MinScore)
	}
}

func TestStore_Search_NoResults(t *testing.T) {
	store := New(&mockQuerier{}, &mockEmbedder{}, nil)

	results, err := store.Search(context.Background(), "quantum chromodynamics exam dates")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %d", len(results))
	}
}

func TestStore_Search_EmbeddingError(t *testing.T) {
	tests := []struct {
		name      string
		embedErr  error
		expectErr string
	}{
		{
			name:      "embedding timeout",
			embedErr:  context.DeadlineExceeded,
			expectErr: "embedding generation timeout",
		},
		{
			name:      "embedding service error",
			embedErr:  errors.New("service unavailable"),
			expectErr: "embedding query",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			querier := &mockQuerier{}
			store := New(querier, &mockEmbedder{embedErr: tt.embedErr}, nil)

			_, err := store.Search(context.Background(), "test query")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.expectErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.expectErr)
			}
			if querier.searchCalls > 0 {
				t.Error("database search should not run when embedding fails")
			}
		})
	}
}

func TestStore_Search_EmptyEmbedding(t *testing.T) {
	store := New(&mockQuerier{}, &mockEmbedder{returnEmpty: true}, nil)

	_, err := store.Search(context.Background(), "test query")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "empty embedding returned") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStore_Search_QueryError(t *testing.T) {
	tests := []struct {
		name      string
		searchErr error
		expectErr string
	}{
		{
			name:      "query timeout",
			searchErr: context.DeadlineExceeded,
			expectErr: "search query timeout",
		},
		{
			name:      "database error",
			searchErr: errors.New("connection lost"),
			expectErr: "search failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := New(&mockQuerier{searchErr: tt.searchErr}, &mockEmbedder{}, nil)

			_, err := store.Search(context.Background(), "test query")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.expectErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.expectErr)
			}
		})
	}
}

func TestStore_Search_Timeout(t *testing.T) {
	// Embedder takes longer than the configured search timeout.
	embedder := &mockEmbedder{delay: 5 * time.Second}
	store := New(&mockQuerier{}, embedder, nil)

	start := time.Now()
	_, err := store.Search(context.Background(), "slow query", WithTimeout(50*time.Millisecond))
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got: %v", err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("timeout took too long: %v", elapsed)
	}
}

func TestStore_RemoveSource(t *testing.T) {
	querier := &mockQuerier{}
	store := New(querier, &mockEmbedder{}, nil)

	if err := store.RemoveSource(context.Background(), "faq-9"); err != nil {
		t.Fatalf("RemoveSource failed: %v", err)
	}
	if querier.lastDeletedID != "faq-9" {
		t.Errorf("wrong source deleted: got %q", querier.lastDeletedID)
	}

	querier.deleteErr = errors.New("permission denied")
	if err := store.RemoveSource(context.Background(), "faq-9"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestStore_Count(t *testing.T) {
	querier := &mockQuerier{countResult: 42}
	store := New(querier, &mockEmbedder{}, nil)

	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 42 {
		t.Errorf("count mismatch: got %d, want 42", n)
	}

	querier.countErr = errors.New("database timeout")
	if _, err := store.Count(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestSearchOptions(t *testing.T) {
	cfg := buildSearchConfig(nil)
	if cfg.topK != 5 {
		t.Errorf("default topK should be 5, got %d", cfg.topK)
	}
	if cfg.minScore != 0 {
		t.Errorf("default minScore should be 0, got %f", cfg.minScore)
	}
	if cfg.timeout != 10*time.Second {
		t.Errorf("default timeout should be 10s, got %v", cfg.timeout)
	}

	cfg = buildSearchConfig([]SearchOption{
		WithTopK(20),
		WithMinScore(0.3),
		WithSourceType(SourceTypeFAQ),
		WithTimeout(2 * time.Second),
	})
	if cfg.topK != 20 {
		t.Errorf("expected topK 20, got %d", cfg.topK)
	}
	if cfg.minScore != 0.3 {
		t.Errorf("expected minScore 0.3, got %f", cfg.minScore)
	}
	if cfg.sourceType != SourceTypeFAQ {
		t.Errorf("expected sourceType faq, got %q", cfg.sourceType)
	}
	if cfg.timeout != 2*time.Second {
		t.Errorf("expected timeout 2s, got %v", cfg.timeout)
	}
}
