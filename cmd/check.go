package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sahayakbot/sahayak/internal/config"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and print the effective values",
	Long: `Check loads configuration from all sources, validates it, and prints
the effective values as JSON. Passwords and API keys are masked.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("rendering config: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	for _, w := range auditWarnings(cfg) {
		fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", w)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "configuration OK")
	return nil
}

// auditWarnings flags configurations that validate but are unwise.
func auditWarnings(cfg *config.Config) []string {
	var warnings []string
	if cfg.IsProduction() && cfg.PostgresSSLMode == "disable" {
		warnings = append(warnings, "production environment with postgres_ssl_mode=disable")
	}
	if cfg.IsProduction() && cfg.PostgresPassword == "" {
		warnings = append(warnings, "production environment with empty postgres password")
	}
	if cfg.Translation.Endpoint == "" && len(cfg.SupportedLanguages) > 1 {
		warnings = append(warnings, "multiple supported languages but no translation endpoint; non-pivot messages will be answered untranslated")
	}
	if !cfg.Observability.Enabled && cfg.IsProduction() {
		warnings = append(warnings, "tracing disabled in production")
	}
	return warnings
}
