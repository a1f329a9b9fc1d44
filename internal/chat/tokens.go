package chat

import "unicode/utf8"

// TokenBudget bounds how much context the generation prompt may carry.
type TokenBudget struct {
	// MaxPromptTokens is the total budget for the current message plus
	// history plus retrieved chunks. Only history and chunks are droppable.
	MaxPromptTokens int
}

// DefaultTokenBudget returns the default prompt budget.
func DefaultTokenBudget() TokenBudget {
	return TokenBudget{MaxPromptTokens: 4000}
}

// estimateTokens approximates token count as runes/2, minimum 1 for
// non-empty text. Deliberately crude: the budget only needs to keep prompts
// roughly bounded, and the estimate is cheap and deterministic across
// languages and scripts.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := utf8.RuneCountInString(text) / 2
	if n < 1 {
		return 1
	}
	return n
}
