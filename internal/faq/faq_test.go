package faq

import (
	"context"
	"errors"
	"testing"

	"github.com/sahayakbot/sahayak/internal/knowledge"
)

type mockFAQQuerier struct {
	insertErr error
	updateErr error
	getErr    error
	listErr   error
	deleteErr error

	nextID         int64
	stored         FAQ
	listRows       []FAQ
	deleteAffected int64
}

func (m *mockFAQQuerier) InsertFAQ(ctx context.Context, arg UpsertFAQParams) (FAQ, error) {
	if m.insertErr != nil {
		return FAQ{}, m.insertErr
	}
	m.nextID++
	return FAQ{
		ID:       m.nextID,
		Question: arg.Question,
		Answer:   arg.Answer,
		Category: arg.Category,
		Language: arg.Language,
		Priority: arg.Priority,
		IsActive: arg.IsActive,
	}, nil
}

func (m *mockFAQQuerier) UpdateFAQ(ctx context.Context, id int64, arg UpsertFAQParams) (FAQ, error) {
	if m.updateErr != nil {
		return FAQ{}, m.updateErr
	}
	return FAQ{
		ID:       id,
		Question: arg.Question,
		Answer:   arg.Answer,
		IsActive: arg.IsActive,
	}, nil
}

func (m *mockFAQQuerier) GetFAQ(ctx context.Context, id int64) (FAQ, error) {
	if m.getErr != nil {
		return FAQ{}, m.getErr
	}
	return m.stored, nil
}

func (m *mockFAQQuerier) ListFAQs(ctx context.Context, arg ListFAQsParams) ([]FAQ, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.listRows, nil
}

func (m *mockFAQQuerier) DeleteFAQ(ctx context.Context, id int64) (int64, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	return m.deleteAffected, nil
}

type mockIndexer struct {
	indexErr  error
	removeErr error

	indexCalls    int
	removeCalls   int
	lastSourceID  string
	lastType      string
	lastTitle     string
	lastContents  []string
	lastRemovedID string
}

func (m *mockIndexer) Index(ctx context.Context, sourceID, sourceType, title string, contents []string) (int, error) {
	m.indexCalls++
	m.lastSourceID = sourceID
	m.lastType = sourceType
	m.lastTitle = title
	m.lastContents = contents
	if m.indexErr != nil {
		return 0, m.indexErr
	}
	return len(contents), nil
}

func (m *mockIndexer) RemoveSource(ctx context.Context, sourceID string) error {
	m.removeCalls++
	m.lastRemovedID = sourceID
	return m.removeErr
}

func TestStore_Create(t *testing.T) {
	querier := &mockFAQQuerier{}
	indexer := &mockIndexer{}
	store := New(querier, indexer, nil)

	created, err := store.Create(context.Background(), FAQ{
		Question: "What are the library hours?",
		Answer:   "8am to 10pm on weekdays.",
		Category: "library",
		Language: "en",
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID != 1 {
		t.Errorf("expected ID 1, got %d", created.ID)
	}

	// New active entries land in the knowledge index.
	if indexer.indexCalls != 1 {
		t.Fatalf("expected 1 index call, got %d", indexer.indexCalls)
	}
	if indexer.lastSourceID != "faq-1" {
		t.Errorf("source ID mismatch: got %q", indexer.lastSourceID)
	}
	if indexer.lastType != knowledge.SourceTypeFAQ {
		t.Errorf("source type mismatch: got %q", indexer.lastType)
	}
	if len(indexer.lastContents) != 1 ||
		indexer.lastContents[0] != "What are the library hours?\n8am to 10pm on weekdays." {
		t.Errorf("indexed content mismatch: %v", indexer.lastContents)
	}
}

func TestStore_Create_EmptyContent(t *testing.T) {
	store := New(&mockFAQQuerier{}, &mockIndexer{}, nil)

	tests := []FAQ{
		{Question: "", Answer: "answer"},
		{Question: "question", Answer: ""},
	}
	for _, f := range tests {
		if _, err := store.Create(context.Background(), f); !errors.Is(err, ErrEmptyContent) {
			t.Errorf("expected ErrEmptyContent, got: %v", err)
		}
	}
}

func TestStore_Create_IndexError(t *testing.T) {
	indexer := &mockIndexer{indexErr: errors.New("embedder unavailable")}
	store := New(&mockFAQQuerier{}, indexer, nil)

	_, err := store.Create(context.Background(), FAQ{
		Question: "q", Answer: "a", IsActive: true,
	})
	if err == nil {
		t.Fatal("expected error when indexing fails")
	}
}

func TestStore_Update_DeactivateRemovesFromIndex(t *testing.T) {
	indexer := &mockIndexer{}
	store := New(&mockFAQQuerier{}, indexer, nil)

	_, err := store.Update(context.Background(), 3, FAQ{
		Question: "q", Answer: "a", IsActive: false,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if indexer.indexCalls != 0 {
		t.Error("inactive entries must not be indexed")
	}
	if indexer.removeCalls != 1 || indexer.lastRemovedID != "faq-3" {
		t.Errorf("expected RemoveSource(faq-3), got %d calls for %q",
			indexer.removeCalls, indexer.lastRemovedID)
	}
}

func TestStore_Delete(t *testing.T) {
	querier := &mockFAQQuerier{deleteAffected: 1}
	indexer := &mockIndexer{}
	store := New(querier, indexer, nil)

	if err := store.Delete(context.Background(), 5); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if indexer.lastRemovedID != "faq-5" {
		t.Errorf("index chunks not removed: got %q", indexer.lastRemovedID)
	}
}

func TestStore_Delete_NotFound(t *testing.T) {
	querier := &mockFAQQuerier{deleteAffected: 0}
	store := New(querier, &mockIndexer{}, nil)

	err := store.Delete(context.Background(), 404)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestStore_Delete_IndexRemovalFailureIsNonFatal(t *testing.T) {
	querier := &mockFAQQuerier{deleteAffected: 1}
	indexer := &mockIndexer{removeErr: errors.New("store offline")}
	store := New(querier, indexer, nil)

	// The row is already gone; index cleanup failure is logged, not returned.
	if err := store.Delete(context.Background(), 5); err != nil {
		t.Fatalf("Delete should tolerate index cleanup failure: %v", err)
	}
}

func TestStore_ReindexAll(t *testing.T) {
	querier := &mockFAQQuerier{
		listRows: []FAQ{
			{ID: 1, Question: "q1", Answer: "a1", IsActive: true},
			{ID: 2, Question: "q2", Answer: "a2", IsActive: true},
		},
	}
	indexer := &mockIndexer{}
	store := New(querier, indexer, nil)

	n, err := store.ReindexAll(context.Background())
	if err != nil {
		t.Fatalf("ReindexAll failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 entries reindexed, got %d", n)
	}
	if indexer.indexCalls != 2 {
		t.Errorf("expected 2 index calls, got %d", indexer.indexCalls)
	}
}

func TestStore_NoIndexerConfigured(t *testing.T) {
	store := New(&mockFAQQuerier{}, nil, nil)

	// Writes succeed without an indexer.
	if _, err := store.Create(context.Background(), FAQ{
		Question: "q", Answer: "a", IsActive: true,
	}); err != nil {
		t.Fatalf("Create without indexer failed: %v", err)
	}

	if _, err := store.ReindexAll(context.Background()); err == nil {
		t.Error("ReindexAll requires an indexer")
	}
}
