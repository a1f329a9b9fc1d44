package config

import (
	"fmt"
	"slices"
)

// Valid PostgreSQL SSL modes.
// Reference: https://www.postgresql.org/docs/current/libpq-ssl.html
var validSSLModes = []string{"disable", "prefer", "require", "verify-ca", "verify-full"}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// Model configuration
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidModelName)
	}
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens < 1 || c.MaxTokens > 8192 {
		return fmt.Errorf("%w: must be between 1 and 8192, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	// Languages
	if len(c.SupportedLanguages) == 0 {
		return fmt.Errorf("%w: supported_languages cannot be empty", ErrInvalidLanguage)
	}
	if c.DefaultLanguage == "" {
		return fmt.Errorf("%w: default_language cannot be empty", ErrInvalidLanguage)
	}
	if !slices.Contains(c.SupportedLanguages, c.DefaultLanguage) {
		return fmt.Errorf("%w: default_language %q is not in supported_languages",
			ErrInvalidLanguage, c.DefaultLanguage)
	}

	// PostgreSQL
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	return c.Pipeline.validate()
}

// validate checks pipeline tunables.
func (p *PipelineConfig) validate() error {
	if p.TopK < 1 || p.TopK > 20 {
		return fmt.Errorf("%w: must be between 1 and 20, got %d", ErrInvalidTopK, p.TopK)
	}
	if p.MinScore < 0.0 || p.MinScore > 1.0 {
		return fmt.Errorf("%w: min_score must be in [0, 1], got %.2f", ErrInvalidThreshold, p.MinScore)
	}
	if p.ConfidenceThreshold < 0.0 || p.ConfidenceThreshold > 1.0 {
		return fmt.Errorf("%w: confidence_threshold must be in [0, 1], got %.2f",
			ErrInvalidThreshold, p.ConfidenceThreshold)
	}
	if p.ConfidenceFloor < 0.0 || p.ConfidenceFloor > p.ConfidenceThreshold {
		return fmt.Errorf("%w: confidence_floor must be in [0, confidence_threshold], got %.2f",
			ErrInvalidThreshold, p.ConfidenceFloor)
	}
	if p.MaxHistoryTurns < 1 || p.MaxHistoryTurns > MaxAllowedHistoryTurns {
		return fmt.Errorf("%w: must be between 1 and %d, got %d",
			ErrInvalidHistoryLimit, MaxAllowedHistoryTurns, p.MaxHistoryTurns)
	}
	if p.PromptBudget < 1 {
		return fmt.Errorf("%w: prompt_budget must be positive, got %d", ErrInvalidBudget, p.PromptBudget)
	}
	return nil
}
