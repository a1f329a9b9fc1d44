package session

import (
	"time"

	"github.com/google/uuid"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is one conversation between a student and the assistant.
// Language is the BCP-47-ish code the student last wrote in; replies are
// rendered in it.
type Session struct {
	ID           uuid.UUID `json:"id"`
	Language     string    `json:"language"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// Turn is a single message in a conversation, either from the student or
// from the assistant. User turns keep the original text alongside the pivot
// translation used internally; assistant turns carry the answer metadata.
type Turn struct {
	ID       int64  `json:"id"`
	Sequence int32  `json:"sequence"`
	Role     string `json:"role"`

	// Content is the text in the session language. OriginalContent and
	// OriginalLanguage preserve what the student actually typed when the
	// session language differs from the pivot.
	Content          string `json:"content"`
	OriginalContent  string `json:"original_content,omitempty"`
	OriginalLanguage string `json:"original_language,omitempty"`
	ResponseLanguage string `json:"response_language,omitempty"`

	Intent     string   `json:"intent,omitempty"`
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources,omitempty"`

	TranslationDegraded bool `json:"translation_degraded,omitempty"`
	GenerationDegraded  bool `json:"generation_degraded,omitempty"`
	Escalated           bool `json:"escalated,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// IsUser reports whether the turn was written by the student.
func (t *Turn) IsUser() bool {
	return t.Role == RoleUser
}
