package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/sahayakbot/sahayak/internal/i18n"
	"github.com/sahayakbot/sahayak/internal/knowledge"
	"github.com/sahayakbot/sahayak/internal/lang"
	"github.com/sahayakbot/sahayak/internal/session"
	"github.com/sahayakbot/sahayak/internal/translate"
)

// Pipeline stages, in execution order. Logged with every stage transition.
const (
	stageReceived  = "received"
	stageDetect    = "detect"
	stageTranslate = "translate"
	stageRetrieve  = "retrieve"
	stageGenerate  = "generate"
	stageScore     = "score"
	stagePersist   = "persist"
	stageCompleted = "completed"
)

// StageTimeouts bound the externally-dependent pipeline stages. Zero fields
// use defaults.
type StageTimeouts struct {
	Translate time.Duration
	Retrieve  time.Duration
	Generate  time.Duration
	Persist   time.Duration
}

func (t *StageTimeouts) applyDefaults() {
	if t.Translate <= 0 {
		t.Translate = 8 * time.Second
	}
	if t.Retrieve <= 0 {
		t.Retrieve = 10 * time.Second
	}
	if t.Generate <= 0 {
		t.Generate = 30 * time.Second
	}
	if t.Persist <= 0 {
		t.Persist = 5 * time.Second
	}
}

// AnswerGenerator produces a grounded answer for an assembled context.
// Satisfied by *Generator.
type AnswerGenerator interface {
	Answer(ctx context.Context, pc PromptContext, message string) (Generation, error)
}

// PipelineConfig contains all dependencies and tunables for the Pipeline.
type PipelineConfig struct {
	Detector    Detector
	Translator  translate.Translator
	Retriever   Retriever
	Sessions    SessionStore
	Generator   AnswerGenerator
	Escalations Escalator // nil disables escalation records (answers still flag it)

	ContextBuilder *ContextBuilder    // nil uses defaults
	Scorer         *Scorer            // nil uses defaults
	Policy         *EscalationPolicy  // nil uses defaults with no explicit patterns

	TopK            int     // retrieval depth, default 5
	MinScore        float64 // retrieval similarity cutoff
	MaxHistoryTurns int     // history window, default session.DefaultHistoryLimit

	// DefaultLanguage is the response language when detection is ambiguous
	// and no session language exists. Empty uses the pivot.
	DefaultLanguage string

	Timeouts StageTimeouts
	Logger   *slog.Logger
}

func (cfg PipelineConfig) validate() error {
	if cfg.Detector == nil {
		return errors.New("detector is required")
	}
	if cfg.Translator == nil {
		return errors.New("translator is required")
	}
	if cfg.Retriever == nil {
		return errors.New("retriever is required")
	}
	if cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	if cfg.Generator == nil {
		return errors.New("generator is required")
	}
	return nil
}

// Pipeline orchestrates one request/response cycle. Requests for the same
// session are serialized with a per-session mutex so concurrent messages
// cannot interleave their history reads and turn appends; requests for
// different sessions run fully in parallel.
//
// Mid-pipeline failures degrade rather than abort: a failed translation
// falls back to the untranslated text, failed retrieval proceeds with no
// knowledge, failed generation returns canned fallback text. The only fatal
// mid-pipeline failure is an unreadable history. Persistence failures are
// logged and the response is still returned; the student should not lose an
// answer the service already has.
type Pipeline struct {
	detector    Detector
	translator  translate.Translator
	retriever   Retriever
	sessions    SessionStore
	generator   AnswerGenerator
	escalations Escalator

	builder *ContextBuilder
	scorer  *Scorer
	policy  *EscalationPolicy

	topK        int
	minScore    float64
	historyLen  int32
	defaultLang string
	timeouts    StageTimeouts
	logger      *slog.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewPipeline creates a Pipeline.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ContextBuilder == nil {
		cfg.ContextBuilder = NewContextBuilder(TokenBudget{}, cfg.Logger)
	}
	if cfg.Scorer == nil {
		cfg.Scorer = NewScorer(ScorerConfig{})
	}
	if cfg.Policy == nil {
		cfg.Policy = NewEscalationPolicy(0, nil)
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.MaxHistoryTurns <= 0 {
		cfg.MaxHistoryTurns = int(session.DefaultHistoryLimit)
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = lang.Pivot
	}
	cfg.Timeouts.applyDefaults()

	return &Pipeline{
		detector:    cfg.Detector,
		translator:  cfg.Translator,
		retriever:   cfg.Retriever,
		sessions:    cfg.Sessions,
		generator:   cfg.Generator,
		escalations: cfg.Escalations,
		builder:     cfg.ContextBuilder,
		scorer:      cfg.Scorer,
		policy:      cfg.Policy,
		topK:        cfg.TopK,
		minScore:    cfg.MinScore,
		historyLen:  int32(cfg.MaxHistoryTurns), // #nosec G115 -- validated range
		defaultLang: cfg.DefaultLanguage,
		timeouts:    cfg.Timeouts,
		logger:      cfg.Logger,
	}, nil
}

// lockSession serializes handling per session. The returned func releases
// the lock; entries are removed once the last holder leaves so the map does
// not grow with dead sessions.
func (p *Pipeline) lockSession(id uuid.UUID) func() {
	p.mu.Lock()
	if p.locks == nil {
		p.locks = make(map[uuid.UUID]*sessionLock)
	}
	l, ok := p.locks[id]
	if !ok {
		l = &sessionLock{}
		p.locks[id] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, id)
		}
		p.mu.Unlock()
	}
}

// Handle runs one full request/response cycle.
//
// Errors are returned only for invalid requests, unknown sessions, and an
// unreadable history; everything past that point degrades into the response.
func (p *Pipeline) Handle(ctx context.Context, req Request) (*Response, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return nil, fmt.Errorf("%w: %d runes", ErrMessageTooLong, utf8.RuneCountInString(message))
	}

	logger := p.logger.With("session_id", req.SessionID)
	logger.Debug("pipeline stage", "stage", stageReceived)

	// Language detection is pure computation; it runs before the session
	// lock so a new session can be created in the detected language.
	respLang, detected := p.detectLanguage(req, message, logger)

	var (
		sess    *session.Session
		history []*session.Turn
	)
	if req.SessionID == uuid.Nil {
		created, err := p.sessions.Create(ctx, respLang)
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		sess = created
	} else {
		unlock := p.lockSession(req.SessionID)
		defer unlock()

		existing, err := p.sessions.Get(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		sess = existing

		history, err = p.sessions.History(ctx, sess.ID, p.historyLen)
		if err != nil {
			// Answering blind risks contradicting earlier turns.
			return nil, fmt.Errorf("%w: %v", ErrHistoryUnavailable, err)
		}

		// Ambiguous detection on a known session keeps the session language.
		if detected == "" && req.Language == "" && sess.Language != "" {
			respLang = sess.Language
		}
	}
	logger = logger.With("session_id", sess.ID, "language", respLang)

	// Translate the message into the pivot language for retrieval and
	// generation. Unavailable translation degrades to the raw text.
	pivotMessage := message
	translationDegraded := false
	if respLang != lang.Pivot {
		logger.Debug("pipeline stage", "stage", stageTranslate)
		translated, err := p.translateStage(ctx, message, respLang, lang.Pivot)
		if err != nil {
			logger.Warn("pivot translation failed, using raw text", "error", err)
			translationDegraded = true
		} else {
			pivotMessage = translated
		}
	}

	logger.Debug("pipeline stage", "stage", stageRetrieve)
	chunks := p.retrieveStage(ctx, pivotMessage, logger)

	pc := p.builder.Build(pivotMessage, history, chunks)

	logger.Debug("pipeline stage", "stage", stageGenerate)
	gen, generationDegraded := p.generateStage(ctx, pc, pivotMessage, respLang, logger)
	answer := gen.Text

	// Translate the answer back out of the pivot. Fallback text is already
	// localized and skips this.
	if !generationDegraded && respLang != lang.Pivot {
		translated, err := p.translateStage(ctx, answer, lang.Pivot, respLang)
		if err != nil {
			logger.Warn("response translation failed, replying in pivot", "error", err)
			translationDegraded = true
		} else {
			answer = translated
		}
	}

	logger.Debug("pipeline stage", "stage", stageScore)
	confidence := p.scorer.Score(pc.Chunks, translationDegraded, generationDegraded)

	reason := p.policy.Decide(pivotMessage, confidence, generationDegraded)
	escalated := reason != ""
	if escalated {
		if p.escalations != nil {
			if _, err := p.escalations.Open(ctx, sess.ID, reason); err != nil {
				logger.Error("opening escalation failed", "reason", reason, "error", err)
			}
		}
		answer += "\n\n" + i18n.T(respLang, i18n.KeyEscalationNotice)
	}

	resp := &Response{
		SessionID:           sess.ID,
		Answer:              answer,
		Language:            respLang,
		Intent:              gen.Intent,
		DetectedLanguage:    detected,
		Confidence:          confidence,
		Sources:             buildSources(pc.Chunks),
		SuggestedQuestions:  suggestQuestions(pc.Chunks),
		Escalated:           escalated,
		EscalationReason:    reason,
		TranslationDegraded: translationDegraded,
		GenerationDegraded:  generationDegraded,
	}

	logger.Debug("pipeline stage", "stage", stagePersist)
	p.persistStage(ctx, sess.ID, message, respLang, detected, resp, logger)

	logger.Info("pipeline stage", "stage", stageCompleted,
		"confidence", confidence,
		"escalated", escalated,
		"sources", len(resp.Sources))
	return resp, nil
}

// detectLanguage resolves the response language for the request. A pinned
// supported language wins; otherwise detection runs, and ambiguity falls
// back to the configured default language (callers may still override with
// the session language). The second return is the raw detected code, ""
// when ambiguous.
func (p *Pipeline) detectLanguage(req Request, message string, logger *slog.Logger) (respLang, detected string) {
	logger.Debug("pipeline stage", "stage", stageDetect)

	if req.Language != "" {
		code, err := lang.Normalize(req.Language)
		if err == nil && p.detector.Supported(code) {
			return code, code
		}
		logger.Warn("ignoring unsupported pinned language", "language", req.Language)
	}

	d, err := p.detector.Detect(message)
	if err != nil {
		logger.Debug("language detection ambiguous", "error", err)
		return p.defaultLang, ""
	}
	return d.Code, d.Code
}

func (p *Pipeline) translateStage(ctx context.Context, text, source, target string) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, p.timeouts.Translate)
	defer cancel()
	return p.translator.Translate(tctx, text, source, target)
}

// retrieveStage searches the knowledge base. Failures degrade to an empty
// result set; the scorer then floors confidence and escalation follows.
func (p *Pipeline) retrieveStage(ctx context.Context, query string, logger *slog.Logger) []knowledge.Result {
	chunks, err := p.retriever.Search(ctx, query,
		knowledge.WithTopK(p.topK),
		knowledge.WithMinScore(p.minScore),
		knowledge.WithTimeout(p.timeouts.Retrieve),
	)
	if err != nil {
		logger.Warn("retrieval failed, answering without knowledge", "error", err)
		return nil
	}
	return chunks
}

// generateStage produces the answer, falling back to canned text in the
// response language when the model cannot deliver. The fallback carries no
// intent label.
func (p *Pipeline) generateStage(ctx context.Context, pc PromptContext, message, respLang string, logger *slog.Logger) (Generation, bool) {
	gctx, cancel := context.WithTimeout(ctx, p.timeouts.Generate)
	defer cancel()

	gen, err := p.generator.Answer(gctx, pc, message)
	if err != nil {
		logger.Error("generation failed, using fallback answer", "error", err)
		return Generation{Text: FallbackAnswer(respLang)}, true
	}
	return gen, false
}

// persistStage appends the user and assistant turns. Failure is logged, not
// returned: the student still gets the answer.
func (p *Pipeline) persistStage(ctx context.Context, sessionID uuid.UUID, message, respLang, detected string, resp *Response, logger *slog.Logger) {
	pctx, cancel := context.WithTimeout(ctx, p.timeouts.Persist)
	defer cancel()

	turns := []*session.Turn{
		{
			Role:             session.RoleUser,
			Content:          message,
			OriginalContent:  message,
			OriginalLanguage: detected,
			ResponseLanguage: respLang,
		},
		{
			Role:                session.RoleAssistant,
			Content:             resp.Answer,
			ResponseLanguage:    respLang,
			Intent:              resp.Intent,
			Confidence:          resp.Confidence,
			Sources:             sourceTitles(resp.Sources),
			TranslationDegraded: resp.TranslationDegraded,
			GenerationDegraded:  resp.GenerationDegraded,
			Escalated:           resp.Escalated,
		},
	}
	if err := p.sessions.AppendTurns(pctx, sessionID, respLang, turns); err != nil {
		logger.Error("persisting turns failed", "error", err)
	}
}

// buildSources converts the retained chunks into response sources,
// retrieval order preserved, duplicate titles collapsed to their
// best-scoring chunk. Never nil.
func buildSources(chunks []knowledge.Result) []Source {
	sources := make([]Source, 0, len(chunks))
	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		title := strings.TrimSpace(c.Chunk.Title)
		if title == "" {
			continue
		}
		if _, dup := seen[strings.ToLower(title)]; dup {
			continue
		}
		seen[strings.ToLower(title)] = struct{}{}
		sources = append(sources, Source{
			Title:   title,
			Content: c.Chunk.Content,
			Score:   c.Similarity,
		})
	}
	return sources
}

// sourceTitles flattens sources to their titles for the persisted turn.
func sourceTitles(sources []Source) []string {
	titles := make([]string, len(sources))
	for i, s := range sources {
		titles[i] = s.Title
	}
	return titles
}
