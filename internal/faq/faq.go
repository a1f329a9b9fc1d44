// Package faq manages the curated question/answer entries that seed the
// knowledge base. Every write re-indexes the entry so semantic search stays
// in step with the FAQ table.
package faq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sahayakbot/sahayak/internal/knowledge"
)

// Sentinel errors. Check with errors.Is.
var (
	ErrNotFound     = errors.New("faq not found")
	ErrEmptyContent = errors.New("question and answer must not be empty")
)

// FAQ is one curated question/answer entry.
type FAQ struct {
	ID        int64     `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Category  string    `json:"category,omitempty"`
	Language  string    `json:"language"`
	Priority  int32     `json:"priority"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// sourceID returns the knowledge-base source identifier for the entry.
func (f *FAQ) sourceID() string {
	return fmt.Sprintf("faq-%d", f.ID)
}

// Indexer is the slice of the knowledge store the FAQ store needs.
type Indexer interface {
	Index(ctx context.Context, sourceID, sourceType, title string, contents []string) (int, error)
	RemoveSource(ctx context.Context, sourceID string) error
}

// Querier defines the database operations the Store depends on.
type Querier interface {
	InsertFAQ(ctx context.Context, arg UpsertFAQParams) (FAQ, error)
	UpdateFAQ(ctx context.Context, id int64, arg UpsertFAQParams) (FAQ, error)
	GetFAQ(ctx context.Context, id int64) (FAQ, error)
	ListFAQs(ctx context.Context, arg ListFAQsParams) ([]FAQ, error)
	DeleteFAQ(ctx context.Context, id int64) (int64, error)
}

// Store manages FAQ entries and keeps the knowledge index synchronized.
type Store struct {
	queries Querier
	index   Indexer
	logger  *slog.Logger
}

// New creates a Store. index may be nil, which disables search indexing
// (useful for offline management commands). logger may be nil.
func New(querier Querier, index Indexer, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{queries: querier, index: index, logger: logger}
}

// Create stores a new FAQ entry and indexes it for retrieval.
func (s *Store) Create(ctx context.Context, f FAQ) (*FAQ, error) {
	if f.Question == "" || f.Answer == "" {
		return nil, ErrEmptyContent
	}

	created, err := s.queries.InsertFAQ(ctx, upsertParams(f))
	if err != nil {
		return nil, fmt.Errorf("insert faq: %w", err)
	}

	if err := s.reindex(ctx, &created); err != nil {
		return nil, err
	}

	s.logger.Debug("created faq", "id", created.ID, "category", created.Category)
	return &created, nil
}

// Update replaces an FAQ entry and refreshes its index chunks.
// Returns ErrNotFound for unknown IDs.
func (s *Store) Update(ctx context.Context, id int64, f FAQ) (*FAQ, error) {
	if f.Question == "" || f.Answer == "" {
		return nil, ErrEmptyContent
	}

	updated, err := s.queries.UpdateFAQ(ctx, id, upsertParams(f))
	if err != nil {
		return nil, fmt.Errorf("update faq %d: %w", id, err)
	}

	if err := s.reindex(ctx, &updated); err != nil {
		return nil, err
	}

	s.logger.Debug("updated faq", "id", id)
	return &updated, nil
}

// Get retrieves a single FAQ entry.
func (s *Store) Get(ctx context.Context, id int64) (*FAQ, error) {
	f, err := s.queries.GetFAQ(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get faq %d: %w", id, err)
	}
	return &f, nil
}

// List returns FAQ entries, optionally filtered by category (empty = all),
// ordered by priority then recency.
func (s *Store) List(ctx context.Context, category string, activeOnly bool) ([]FAQ, error) {
	faqs, err := s.queries.ListFAQs(ctx, ListFAQsParams{
		Category:   category,
		ActiveOnly: activeOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("list faqs: %w", err)
	}
	return faqs, nil
}

// Delete removes an FAQ entry and its index chunks.
// Returns ErrNotFound for unknown IDs.
func (s *Store) Delete(ctx context.Context, id int64) error {
	affected, err := s.queries.DeleteFAQ(ctx, id)
	if err != nil {
		return fmt.Errorf("delete faq %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("faq %d: %w", id, ErrNotFound)
	}

	if s.index != nil {
		f := FAQ{ID: id}
		if err := s.index.RemoveSource(ctx, f.sourceID()); err != nil {
			// The entry is gone; stale chunks only until the next reindex.
			s.logger.Warn("removing faq index chunks failed", "id", id, "error", err)
		}
	}

	s.logger.Debug("deleted faq", "id", id)
	return nil
}

// ReindexAll rebuilds the knowledge index from every active FAQ entry.
// Used after bulk imports and embedding model changes.
func (s *Store) ReindexAll(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, errors.New("no indexer configured")
	}

	faqs, err := s.queries.ListFAQs(ctx, ListFAQsParams{ActiveOnly: true})
	if err != nil {
		return 0, fmt.Errorf("list faqs for reindex: %w", err)
	}

	total := 0
	for i := range faqs {
		if err := s.reindex(ctx, &faqs[i]); err != nil {
			return total, err
		}
		total++
	}

	s.logger.Info("reindexed faqs", "count", total)
	return total, nil
}

// reindex refreshes the knowledge chunks for one entry. Inactive entries are
// removed from the index so they stop surfacing in answers.
func (s *Store) reindex(ctx context.Context, f *FAQ) error {
	if s.index == nil {
		return nil
	}

	if !f.IsActive {
		if err := s.index.RemoveSource(ctx, f.sourceID()); err != nil {
			return fmt.Errorf("deindex faq %d: %w", f.ID, err)
		}
		return nil
	}

	content := f.Question + "\n" + f.Answer
	if _, err := s.index.Index(ctx, f.sourceID(), knowledge.SourceTypeFAQ, f.Question, []string{content}); err != nil {
		return fmt.Errorf("index faq %d: %w", f.ID, err)
	}
	return nil
}

func upsertParams(f FAQ) UpsertFAQParams {
	return UpsertFAQParams{
		Question: f.Question,
		Answer:   f.Answer,
		Category: f.Category,
		Language: f.Language,
		Priority: f.Priority,
		IsActive: f.IsActive,
	}
}
