package chat

import (
	"strings"

	"github.com/sahayakbot/sahayak/internal/knowledge"
)

// maxSuggestions caps the follow-up questions attached to a response.
const maxSuggestions = 3

// suggestQuestions derives follow-up questions from the retrieved chunks
// that were NOT used as the primary source, so the student discovers
// adjacent knowledge. FAQ chunk titles are the questions themselves;
// duplicates and the top chunk's own title are skipped.
func suggestQuestions(chunks []knowledge.Result) []string {
	suggestions := make([]string, 0, maxSuggestions)
	if len(chunks) < 2 {
		return suggestions
	}

	seen := map[string]struct{}{
		normTitle(chunks[0].Chunk.Title): {},
	}
	for _, c := range chunks[1:] {
		title := strings.TrimSpace(c.Chunk.Title)
		if title == "" {
			continue
		}
		key := normTitle(title)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		suggestions = append(suggestions, title)
		if len(suggestions) == maxSuggestions {
			break
		}
	}
	return suggestions
}

func normTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
