// Package app assembles the assistant from its parts: configuration,
// logging, tracing, database, Genkit, stores, the chat pipeline and the
// HTTP server. It is the only package allowed to know about everything.
package app

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sahayakbot/sahayak/api"
	"github.com/sahayakbot/sahayak/internal/chat"
	"github.com/sahayakbot/sahayak/internal/config"
	"github.com/sahayakbot/sahayak/internal/escalate"
	"github.com/sahayakbot/sahayak/internal/faq"
	"github.com/sahayakbot/sahayak/internal/knowledge"
	"github.com/sahayakbot/sahayak/internal/lang"
	"github.com/sahayakbot/sahayak/internal/session"
	"github.com/sahayakbot/sahayak/internal/translate"
)

// App holds every initialized component and their teardown order.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Pool     *pgxpool.Pool

	Knowledge   *knowledge.Store
	Sessions    *session.Store
	Escalations *escalate.Store
	FAQs        *faq.Store

	Detector   *lang.Detector
	Translator translate.Translator
	Pipeline   *chat.Pipeline
	Server     *api.Server

	otelCleanup func()
	cancel      context.CancelFunc
}

// Close releases all resources. Safe to call on a partially constructed
// App after a Setup failure.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.cancel != nil {
		a.cancel()
	}

	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Info("database pool closed")
	}

	// Flush pending spans last so teardown itself is traced.
	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}
