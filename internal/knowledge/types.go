package knowledge

import "time"

// Source type constants for indexed chunks.
const (
	// SourceTypeFAQ represents chunks indexed from the FAQ database.
	SourceTypeFAQ = "faq"

	// SourceTypeDocument represents chunks extracted from uploaded documents.
	SourceTypeDocument = "document"
)

// VectorDimension is the embedding width of the knowledge_chunks table.
// gemini-embedding-001 supports truncation to 768 dimensions; the pgvector
// schema is fixed to this width.
const VectorDimension = 768

// Chunk is a retrievable unit of indexed text.
type Chunk struct {
	ID         string // unique identifier, "<source_id>#<n>"
	SourceID   string // owning FAQ or document identifier
	SourceType string // SourceTypeFAQ or SourceTypeDocument
	Title      string
	Content    string
	CreatedAt  time.Time
}

// Result is a single search result with its similarity score.
type Result struct {
	Chunk      Chunk
	Similarity float64 // cosine similarity, higher is more relevant
}

// SearchOption configures search behavior using the functional options pattern.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK       int
	minScore   float64
	sourceType string
	timeout    time.Duration
}

// WithTopK sets the maximum number of results to return. Default 5.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// WithMinScore filters out results scoring below the threshold.
func WithMinScore(score float64) SearchOption {
	return func(c *searchConfig) {
		c.minScore = score
	}
}

// WithSourceType restricts search to a single source type.
func WithSourceType(sourceType string) SearchOption {
	return func(c *searchConfig) {
		c.sourceType = sourceType
	}
}

// WithTimeout overrides the per-search timeout. Default 10s.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		c.timeout = d
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    5,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
