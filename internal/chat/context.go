package chat

import (
	"log/slog"

	"github.com/sahayakbot/sahayak/internal/knowledge"
	"github.com/sahayakbot/sahayak/internal/session"
)

// PromptContext is the assembled material for one generation call.
type PromptContext struct {
	// History is the retained conversation window, oldest first.
	History []*session.Turn

	// Chunks are the retained knowledge results, ordered by similarity.
	Chunks []knowledge.Result

	// DroppedTurns and DroppedChunks count what the budget forced out.
	DroppedTurns  int
	DroppedChunks int
}

// ContextBuilder trims conversation history and retrieved chunks to fit the
// token budget. The current message is never trimmed; when the budget is
// exceeded the builder drops the oldest history turns first, then the
// lowest-scoring chunks. Building is deterministic: the same inputs always
// produce the same context.
type ContextBuilder struct {
	budget TokenBudget
	logger *slog.Logger
}

// NewContextBuilder creates a builder. Zero budget uses the default.
func NewContextBuilder(budget TokenBudget, logger *slog.Logger) *ContextBuilder {
	if budget.MaxPromptTokens <= 0 {
		budget = DefaultTokenBudget()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ContextBuilder{budget: budget, logger: logger}
}

// Build assembles the prompt context for a request. message is the current
// student message; it counts against the budget but is never dropped, so a
// budget smaller than the message alone yields an empty context. history
// must be in chronological order and chunks in non-increasing similarity
// order; both orders are preserved in the result. Inputs are not mutated.
func (b *ContextBuilder) Build(message string, history []*session.Turn, chunks []knowledge.Result) PromptContext {
	keptHistory := make([]*session.Turn, len(history))
	copy(keptHistory, history)
	keptChunks := make([]knowledge.Result, len(chunks))
	copy(keptChunks, chunks)

	total := estimateTokens(message)
	for _, t := range keptHistory {
		total += estimateTokens(t.Content)
	}
	for _, c := range keptChunks {
		total += estimateTokens(c.Chunk.Content)
	}

	pc := PromptContext{}

	// Oldest history goes first: recent turns matter more for coherence
	// than distant ones.
	for total > b.budget.MaxPromptTokens && len(keptHistory) > 0 {
		total -= estimateTokens(keptHistory[0].Content)
		keptHistory = keptHistory[1:]
		pc.DroppedTurns++
	}

	// Then the weakest chunks from the tail. Retrieval orders by similarity,
	// so the tail is always the least relevant; equal scores drop in
	// reverse retrieval order.
	for total > b.budget.MaxPromptTokens && len(keptChunks) > 0 {
		last := len(keptChunks) - 1
		total -= estimateTokens(keptChunks[last].Chunk.Content)
		keptChunks = keptChunks[:last]
		pc.DroppedChunks++
	}

	pc.History = keptHistory
	pc.Chunks = keptChunks

	if pc.DroppedTurns > 0 || pc.DroppedChunks > 0 {
		b.logger.Debug("trimmed prompt context",
			"dropped_turns", pc.DroppedTurns,
			"dropped_chunks", pc.DroppedChunks,
			"tokens", total,
			"budget", b.budget.MaxPromptTokens)
	}
	return pc
}
