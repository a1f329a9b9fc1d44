package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sahayakbot/sahayak/internal/app"
	"github.com/sahayakbot/sahayak/internal/chat"
	"github.com/sahayakbot/sahayak/internal/config"
	"github.com/sahayakbot/sahayak/internal/session"
)

var (
	askLanguage   string
	askNewSession bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the assistant a question from the terminal",
	Long: `Ask sends one question through the full pipeline and prints the
answer. The conversation continues across invocations via
~/.sahayak/current_session; pass --new to start over.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askLanguage, "language", "", "pin the response language (e.g. hi, en)")
	askCmd.Flags().BoolVar(&askNewSession, "new", false, "start a fresh conversation")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() { _ = a.Close() }()

	var sessionID uuid.UUID
	if askNewSession {
		if err := session.ClearCurrentSessionID(); err != nil {
			return err
		}
	} else {
		current, err := session.LoadCurrentSessionID()
		if err != nil {
			return err
		}
		if current != nil {
			sessionID = *current
		}
	}

	question := strings.Join(args, " ")
	resp, err := a.Pipeline.Handle(ctx, chat.Request{
		SessionID: sessionID,
		Message:   question,
		Language:  askLanguage,
	})
	if errors.Is(err, session.ErrNotFound) && sessionID != uuid.Nil {
		// Stale state file, e.g. the session was deleted server-side.
		_ = session.ClearCurrentSessionID()
		resp, err = a.Pipeline.Handle(ctx, chat.Request{
			Message:  question,
			Language: askLanguage,
		})
	}
	if err != nil {
		return fmt.Errorf("asking: %w", err)
	}

	if err := session.SaveCurrentSessionID(resp.SessionID); err != nil {
		a.Logger.Warn("saving session state", "error", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), resp.Answer)
	if len(resp.SuggestedQuestions) > 0 {
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), "You could also ask:")
		for _, q := range resp.SuggestedQuestions {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", q)
		}
	}
	return nil
}
