package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	coreapi "github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sahayakbot/sahayak/api"
	"github.com/sahayakbot/sahayak/db"
	"github.com/sahayakbot/sahayak/internal/chat"
	"github.com/sahayakbot/sahayak/internal/config"
	"github.com/sahayakbot/sahayak/internal/escalate"
	"github.com/sahayakbot/sahayak/internal/faq"
	"github.com/sahayakbot/sahayak/internal/knowledge"
	"github.com/sahayakbot/sahayak/internal/lang"
	"github.com/sahayakbot/sahayak/internal/log"
	"github.com/sahayakbot/sahayak/internal/observability"
	"github.com/sahayakbot/sahayak/internal/session"
	"github.com/sahayakbot/sahayak/internal/translate"
)

// Setup initializes the application from configuration.
// On failure everything already initialized is released before returning.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	a := &App{Config: cfg}
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				slog.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.Logger = log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	slog.SetDefault(a.Logger)

	// Tracing must be registered before Genkit initialization so the
	// provider's generation spans hit our exporter.
	if cfg.Observability.Enabled {
		a.otelCleanup = observability.Setup(ctx, observability.Config{
			OTLPEndpoint: cfg.Observability.OTLPEndpoint,
			ServiceName:  cfg.Observability.ServiceName,
			Environment:  cfg.Observability.Environment,
		}, a.Logger)
	}

	pool, err := providePool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g, err := provideGenkit(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	a.Knowledge = knowledge.New(knowledge.NewPGQuerier(pool), embedder, a.Logger)
	a.Sessions = session.New(session.NewQueries(pool), pool, a.Logger)
	a.Escalations = escalate.New(escalate.NewPGQuerier(pool), a.Logger)
	a.FAQs = faq.New(faq.NewPGQuerier(pool), a.Knowledge, a.Logger)

	a.Detector = lang.NewDetector(lang.DetectorConfig{
		Supported: cfg.SupportedLanguages,
	})
	a.Translator = provideTranslator(cfg, a.Logger)

	generator, err := provideGenerator(g, cfg, a.Logger)
	if err != nil {
		return nil, err
	}

	pipeline, err := chat.NewPipeline(chat.PipelineConfig{
		Detector:    a.Detector,
		Translator:  a.Translator,
		Retriever:   a.Knowledge,
		Sessions:    a.Sessions,
		Generator:   generator,
		Escalations: a.Escalations,
		ContextBuilder: chat.NewContextBuilder(chat.TokenBudget{
			MaxPromptTokens: cfg.Pipeline.PromptBudget,
		}, a.Logger),
		Scorer: chat.NewScorer(chat.ScorerConfig{
			Floor: cfg.Pipeline.ConfidenceFloor,
		}),
		Policy:          chat.NewEscalationPolicy(cfg.Pipeline.ConfidenceThreshold, cfg.Pipeline.EscalationPatterns),
		TopK:            cfg.Pipeline.TopK,
		MinScore:        cfg.Pipeline.MinScore,
		MaxHistoryTurns: cfg.Pipeline.MaxHistoryTurns,
		DefaultLanguage: cfg.DefaultLanguage,
		Timeouts: chat.StageTimeouts{
			Translate: cfg.Pipeline.TranslateTimeout,
			Retrieve:  cfg.Pipeline.RetrieveTimeout,
			Generate:  cfg.Pipeline.GenerateTimeout,
			Persist:   cfg.Pipeline.PersistTimeout,
		},
		Logger: a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building pipeline: %w", err)
	}
	a.Pipeline = pipeline

	a.Server = api.NewServer(api.ServerConfig{
		Pipeline:      pipeline,
		Sessions:      a.Sessions,
		FAQs:          a.FAQs,
		Escalations:   a.Escalations,
		Pool:          pool,
		Logger:        a.Logger,
		RatePerSecond: cfg.RateLimitRPS,
		RateBurst:     cfg.RateLimitBurst,
		TrustProxy:    cfg.TrustProxy,
		CORSOrigins:   cfg.CORSOrigins,
	})

	_, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	return a, nil
}

// providePool runs migrations and opens the connection pool.
func providePool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.ConnURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnURL())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// provideGenkit initializes Genkit with the configured AI provider.
// Supports googleai (default) and openai.
func provideGenkit(ctx context.Context, cfg *config.Config) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		slog.Info("initialized Genkit with openai provider", "model", cfg.ModelName)

	default: // googleai
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with googleai provider")
		}
		slog.Info("initialized Genkit with googleai provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the provider plugin.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		// OpenAI auto-registers embedders in Init().
		return genkit.LookupEmbedder(g, coreapi.NewName("openai", cfg.EmbedderModel))
	default:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

// provideTranslator returns the HTTP translation client, or the identity
// translator when no endpoint is configured. With Noop, non-pivot messages
// are retrieved and answered untranslated, a single-language deployment
// never notices.
func provideTranslator(cfg *config.Config, logger *slog.Logger) translate.Translator {
	if cfg.Translation.Endpoint == "" {
		logger.Info("no translation endpoint configured, pivot translation disabled")
		return translate.Noop{}
	}
	return translate.NewClient(translate.Config{
		Endpoint:  cfg.Translation.Endpoint,
		APIKey:    cfg.Translation.APIKey,
		Languages: cfg.SupportedLanguages,
		Timeout:   cfg.Translation.Timeout,
	}, logger)
}

// provideGenerator builds the answer generator with the provider-qualified
// model name.
func provideGenerator(g *genkit.Genkit, cfg *config.Config, logger *slog.Logger) (*chat.Generator, error) {
	modelName := cfg.ModelName
	if !strings.Contains(modelName, "/") {
		provider := cfg.Provider
		if provider == "" {
			provider = config.ProviderGoogleAI
		}
		modelName = provider + "/" + modelName
	}

	gen, err := chat.NewGenerator(chat.GeneratorConfig{
		Genkit:          g,
		ModelName:       modelName,
		Temperature:     float64(cfg.Temperature),
		MaxOutputTokens: cfg.MaxTokens,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building generator: %w", err)
	}
	return gen, nil
}
