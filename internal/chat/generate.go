package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/sahayakbot/sahayak/internal/i18n"
	"github.com/sahayakbot/sahayak/internal/knowledge"
	"github.com/sahayakbot/sahayak/internal/session"
)

// generateFunc abstracts genkit.Generate so tests can stub the model.
type generateFunc func(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error)

// GeneratorConfig contains all parameters for the Generator.
type GeneratorConfig struct {
	Genkit *genkit.Genkit

	// ModelName is provider-qualified, e.g. "googleai/gemini-2.0-flash".
	ModelName       string
	Temperature     float64
	MaxOutputTokens int

	RetryConfig          RetryConfig          // zero value uses defaults
	CircuitBreakerConfig CircuitBreakerConfig // zero value uses defaults
	RateLimiter          *rate.Limiter        // nil disables proactive limiting
	Logger               *slog.Logger
}

// Generator produces grounded answers from an assembled prompt context.
// All configuration is captured immutably at construction, so a Generator
// is safe for concurrent use.
type Generator struct {
	generate  generateFunc
	modelName string
	config    map[string]any

	retry   RetryConfig
	breaker *CircuitBreaker
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewGenerator creates a Generator over a genkit instance.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if cfg.Genkit == nil {
		return nil, errors.New("genkit instance is required")
	}
	if cfg.ModelName == "" {
		return nil, errors.New("model name is required")
	}

	g := newGeneratorWith(func(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
		return genkit.Generate(ctx, cfg.Genkit, opts...)
	}, cfg)
	return g, nil
}

func newGeneratorWith(generate generateFunc, cfg GeneratorConfig) *Generator {
	if cfg.RetryConfig == (RetryConfig{}) {
		cfg.RetryConfig = DefaultRetryConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 1024
	}

	return &Generator{
		generate:  generate,
		modelName: cfg.ModelName,
		config: map[string]any{
			"temperature":     cfg.Temperature,
			"maxOutputTokens": cfg.MaxOutputTokens,
		},
		retry:   cfg.RetryConfig,
		breaker: NewCircuitBreaker(cfg.CircuitBreakerConfig),
		limiter: cfg.RateLimiter,
		logger:  cfg.Logger,
	}
}

// Generation is one model reply: the answer text plus the optional intent
// label the model tagged the question with.
type Generation struct {
	Text   string
	Intent string
}

// maxIntentLength caps the accepted intent label; the turns table stores
// intent as varchar(100).
const maxIntentLength = 100

// Answer generates a reply to message grounded in pc. message must already
// be in the pivot language; the reply comes back in the pivot language too
// and the caller translates it out. Returns ErrCircuitOpen when the model
// endpoint is being shed, ErrGenerationFailed when retries are exhausted or
// the model returns nothing usable.
func (g *Generator) Answer(ctx context.Context, pc PromptContext, message string) (Generation, error) {
	if err := g.breaker.Allow(); err != nil {
		return Generation{}, err
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(g.modelName),
		ai.WithSystem(systemPrompt(pc.Chunks)),
		ai.WithMessages(buildMessages(pc.History, message)...),
		ai.WithConfig(g.config),
	}

	resp, err := g.generateWithRetry(ctx, opts)
	if err != nil {
		g.breaker.Failure()
		return Generation{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	gen := parseGeneration(resp.Text())
	if gen.Text == "" {
		g.breaker.Failure()
		return Generation{}, fmt.Errorf("%w: model returned empty response", ErrGenerationFailed)
	}

	g.breaker.Success()
	return gen, nil
}

// parseGeneration splits the optional leading intent tag off the model
// reply. Models do not always honor the tag instruction, so a missing or
// malformed tag leaves the intent empty and the text untouched.
func parseGeneration(raw string) Generation {
	text := strings.TrimSpace(raw)

	first, rest, _ := strings.Cut(text, "\n")
	const prefix = "intent:"
	first = strings.TrimSpace(first)
	if len(first) < len(prefix) || !strings.EqualFold(first[:len(prefix)], prefix) {
		return Generation{Text: text}
	}

	intent := strings.ToLower(strings.TrimSpace(first[len(prefix):]))
	if intent == "" || len(intent) > maxIntentLength || strings.ContainsAny(intent, " \t") {
		return Generation{Text: text}
	}
	return Generation{Text: strings.TrimSpace(rest), Intent: intent}
}

// systemPrompt renders the grounding instructions with the retrieved
// knowledge inlined. An empty chunk list still instructs the model to admit
// ignorance rather than invent campus facts.
func systemPrompt(chunks []knowledge.Result) string {
	var b strings.Builder
	b.WriteString("You are Sahayak, a helpful campus assistant for students.\n")
	b.WriteString("Answer using ONLY the knowledge below. If the knowledge does not cover ")
	b.WriteString("the question, say you do not know and suggest contacting the campus office. ")
	b.WriteString("Never invent dates, fees, or contact details. Keep answers short and practical.\n")
	b.WriteString("Start your reply with a single line of the form 'Intent: <label>' where ")
	b.WriteString("<label> is one lowercase word naming the question's topic ")
	b.WriteString("(admissions, fees, library, hostel, exams, general). ")
	b.WriteString("Put the answer on the lines after it.\n")

	if len(chunks) == 0 {
		b.WriteString("\nKnowledge: (none found for this question)\n")
		return b.String()
	}

	b.WriteString("\nKnowledge:\n")
	for i, c := range chunks {
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, c.Chunk.Title, c.Chunk.Content)
	}
	return b.String()
}

// buildMessages converts the retained history plus the current message into
// model messages.
func buildMessages(history []*session.Turn, message string) []*ai.Message {
	msgs := make([]*ai.Message, 0, len(history)+1)
	for _, t := range history {
		role := ai.RoleModel
		if t.IsUser() {
			role = ai.RoleUser
		}
		msgs = append(msgs, &ai.Message{
			Role:    role,
			Content: []*ai.Part{ai.NewTextPart(t.Content)},
		})
	}
	msgs = append(msgs, ai.NewUserTextMessage(message))
	return msgs
}

// FallbackAnswer is the canned reply used when generation fails outright,
// rendered in the response language.
func FallbackAnswer(language string) string {
	return i18n.T(language, i18n.KeyFallbackAnswer)
}
