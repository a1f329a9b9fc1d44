package chat

import (
	"testing"

	"github.com/sahayakbot/sahayak/internal/knowledge"
)

func titled(titles ...string) []knowledge.Result {
	out := make([]knowledge.Result, 0, len(titles))
	for _, title := range titles {
		out = append(out, knowledge.Result{Chunk: knowledge.Chunk{Title: title}})
	}
	return out
}

func TestSuggestQuestions(t *testing.T) {
	t.Parallel()

	got := suggestQuestions(titled(
		"Library hours",
		"How to book a study room?",
		"Library hours", // duplicate of the primary source
		"Where is the lost and found?",
		"Fee payment deadlines",
		"Hostel curfew",
	))

	want := []string{
		"How to book a study room?",
		"Where is the lost and found?",
		"Fee payment deadlines",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d suggestions, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("suggestion %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSuggestQuestions_NeverNil(t *testing.T) {
	t.Parallel()

	if suggestQuestions(nil) == nil {
		t.Error("suggestions must be non-nil for empty input")
	}
	if suggestQuestions(titled("only one")) == nil {
		t.Error("suggestions must be non-nil with a single chunk")
	}
}

func TestSuggestQuestions_SkipsEmptyTitles(t *testing.T) {
	t.Parallel()

	got := suggestQuestions(titled("primary", "", "  ", "real question"))
	if len(got) != 1 || got[0] != "real question" {
		t.Errorf("expected only the real question, got %v", got)
	}
}
