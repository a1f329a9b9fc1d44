package chat

import (
	"strings"

	"github.com/sahayakbot/sahayak/internal/escalate"
	"github.com/sahayakbot/sahayak/internal/knowledge"
)

// ScorerConfig configures confidence scoring.
type ScorerConfig struct {
	// Floor is the confidence assigned when no knowledge supports the
	// answer. Default 0.2.
	Floor float64

	// TranslationPenalty is subtracted when the reply went out untranslated.
	// Default 0.1.
	TranslationPenalty float64
}

// Scorer maps retrieval evidence and degradation signals to a confidence
// value in [0, 1].
//
// The mapping is deliberately simple: confidence equals the best retrieval
// similarity clamped to [floor, 1], so better evidence never lowers the
// score and any evidence scores at least as high as none. Failed generation
// zeroes it, missing evidence floors it, degraded translation shaves a fixed
// penalty.
type Scorer struct {
	floor   float64
	penalty float64
}

// NewScorer creates a Scorer. Zero config fields use defaults.
func NewScorer(cfg ScorerConfig) *Scorer {
	if cfg.Floor <= 0 {
		cfg.Floor = 0.2
	}
	if cfg.TranslationPenalty <= 0 {
		cfg.TranslationPenalty = 0.1
	}
	return &Scorer{floor: cfg.Floor, penalty: cfg.TranslationPenalty}
}

// Score computes the confidence for an answer. chunks are the retrieval
// results that backed it, in non-increasing similarity order.
func (s *Scorer) Score(chunks []knowledge.Result, translationDegraded, generationDegraded bool) float64 {
	if generationDegraded {
		return 0
	}

	var conf float64
	if len(chunks) == 0 {
		conf = s.floor
	} else {
		conf = chunks[0].Similarity
		if conf > 1 {
			conf = 1
		}
		// Evidence never scores below no evidence at all; a low retrieval
		// cutoff can admit chunks weaker than the empty-list floor.
		if conf < s.floor {
			conf = s.floor
		}
	}

	if translationDegraded {
		conf -= s.penalty
	}
	if conf < 0 {
		conf = 0
	}
	return conf
}

// EscalationPolicy decides whether a request cycle hands off to a human.
// At most one escalation is opened per cycle; when several causes apply the
// strongest reason wins: generation failure over low confidence over an
// explicit request.
type EscalationPolicy struct {
	threshold float64
	patterns  []string
}

// NewEscalationPolicy creates a policy. threshold <= 0 uses 0.55; patterns
// are matched case-insensitively as substrings of the pivot-language
// message.
func NewEscalationPolicy(threshold float64, patterns []string) *EscalationPolicy {
	if threshold <= 0 {
		threshold = 0.55
	}
	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}
	return &EscalationPolicy{threshold: threshold, patterns: lowered}
}

// Decide returns the escalation reason for this cycle, or "" when the answer
// stands on its own. message is the student text in the pivot language.
func (p *EscalationPolicy) Decide(message string, confidence float64, generationDegraded bool) string {
	if generationDegraded {
		return escalate.ReasonGenerationFailure
	}
	if confidence < p.threshold {
		return escalate.ReasonLowConfidence
	}
	if p.explicitRequest(message) {
		return escalate.ReasonExplicitRequest
	}
	return ""
}

func (p *EscalationPolicy) explicitRequest(message string) bool {
	lower := strings.ToLower(message)
	for _, pattern := range p.patterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
