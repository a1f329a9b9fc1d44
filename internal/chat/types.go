// Package chat implements the answering pipeline: language detection,
// pivot translation, retrieval, context assembly, generation, confidence
// scoring and escalation.
package chat

import (
	"context"

	"github.com/google/uuid"

	"github.com/sahayakbot/sahayak/internal/escalate"
	"github.com/sahayakbot/sahayak/internal/knowledge"
	"github.com/sahayakbot/sahayak/internal/lang"
	"github.com/sahayakbot/sahayak/internal/session"
)

// MaxMessageLength is the longest accepted student message, in runes.
const MaxMessageLength = 4000

// Request is one student message addressed to the assistant.
type Request struct {
	// SessionID identifies the conversation; uuid.Nil starts a new one.
	SessionID uuid.UUID

	// Message is the student's text, in any supported language.
	Message string

	// Language optionally pins the response language, bypassing detection.
	Language string
}

// Source is one knowledge chunk that backed the answer.
type Source struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Response is the assistant's reply with its provenance and quality signals.
type Response struct {
	SessionID uuid.UUID `json:"session_id"`

	// Answer is the reply text in the response language.
	Answer   string `json:"answer"`
	Language string `json:"language"`

	// Intent is the topic label the model tagged the question with,
	// empty when the model supplied none.
	Intent string `json:"intent,omitempty"`

	// DetectedLanguage is what detection concluded about the request,
	// before any fallback was applied.
	DetectedLanguage string  `json:"detected_language"`
	Confidence       float64 `json:"confidence"`

	// Sources are the knowledge chunks behind the answer, best first.
	// Always non-nil, possibly empty.
	Sources []Source `json:"sources"`

	// SuggestedQuestions are follow-ups drawn from related knowledge.
	// Always non-nil, possibly empty.
	SuggestedQuestions []string `json:"suggested_questions"`

	Escalated        bool   `json:"escalated"`
	EscalationReason string `json:"escalation_reason,omitempty"`

	// Degradation flags: the answer was produced, but a stage fell back.
	TranslationDegraded bool `json:"translation_degraded"`
	GenerationDegraded  bool `json:"generation_degraded"`
}

// Retriever is the slice of the knowledge store the pipeline needs.
type Retriever interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// Detector classifies the language of student text.
type Detector interface {
	Detect(text string) (lang.Detection, error)
	Supported(code string) bool
}

// SessionStore is the slice of the session store the pipeline needs.
type SessionStore interface {
	Create(ctx context.Context, language string) (*session.Session, error)
	Get(ctx context.Context, sessionID uuid.UUID) (*session.Session, error)
	History(ctx context.Context, sessionID uuid.UUID, limit int32) ([]*session.Turn, error)
	AppendTurns(ctx context.Context, sessionID uuid.UUID, language string, turns []*session.Turn) error
}

// Escalator opens escalation records for sessions that need a human.
// Satisfied by *escalate.Store.
type Escalator interface {
	Open(ctx context.Context, sessionID uuid.UUID, reason string) (*escalate.Escalation, error)
}
