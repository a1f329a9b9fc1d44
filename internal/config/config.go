// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override, SAHAYAK_ prefix)
//  2. Config file (~/.sahayak/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: model selection, temperature, max tokens, embedder
//   - Storage: PostgreSQL connection
//   - Languages: supported languages, default, pivot
//   - Translation: upstream translation service
//   - Pipeline: retrieval depth, stage timeouts, confidence thresholds
//
// Security: passwords and API keys are masked in MarshalJSON and never logged.
// Validation lives in validation.go with sentinel errors checked via errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration failures.
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidLanguage indicates a language code outside the supported set.
	ErrInvalidLanguage = errors.New("invalid language")

	// ErrInvalidTopK indicates the retrieval depth is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top-k")

	// ErrInvalidThreshold indicates a threshold outside [0, 1].
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrInvalidHistoryLimit indicates the history limit is out of range.
	ErrInvalidHistoryLimit = errors.New("invalid history limit")

	// ErrInvalidBudget indicates a non-positive prompt budget.
	ErrInvalidBudget = errors.New("invalid prompt budget")
)

// Pipeline limits.
const (
	// DefaultMaxHistoryTurns is the number of stored turns considered per request.
	DefaultMaxHistoryTurns = 10

	// MaxAllowedHistoryTurns is the absolute maximum to prevent OOM.
	MaxAllowedHistoryTurns = 50

	// DefaultPromptBudget is the default token budget for the assembled prompt.
	DefaultPromptBudget = 4000

	// MaxMessageLength is the maximum accepted chat message length in runes.
	MaxMessageLength = 4000
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGoogleAI = "googleai"
	ProviderOpenAI   = "openai"
)

// PipelineConfig holds tunables for the chat pipeline core.
type PipelineConfig struct {
	// Retrieval
	TopK     int     `mapstructure:"top_k" json:"top_k"`
	MinScore float64 `mapstructure:"min_score" json:"min_score"`

	// Confidence / escalation
	ConfidenceThreshold float64  `mapstructure:"confidence_threshold" json:"confidence_threshold"`
	ConfidenceFloor     float64  `mapstructure:"confidence_floor" json:"confidence_floor"`
	EscalationPatterns  []string `mapstructure:"escalation_patterns" json:"escalation_patterns"`

	// Context assembly
	PromptBudget    int `mapstructure:"prompt_budget" json:"prompt_budget"`
	MaxHistoryTurns int `mapstructure:"max_history_turns" json:"max_history_turns"`

	// Stage timeouts. Detection has none: it is in-process computation
	// with no external call to bound.
	TranslateTimeout time.Duration `mapstructure:"translate_timeout" json:"translate_timeout"`
	RetrieveTimeout  time.Duration `mapstructure:"retrieve_timeout" json:"retrieve_timeout"`
	GenerateTimeout  time.Duration `mapstructure:"generate_timeout" json:"generate_timeout"`
	PersistTimeout   time.Duration `mapstructure:"persist_timeout" json:"persist_timeout"`
}

// TranslationConfig holds the upstream translation service settings.
type TranslationConfig struct {
	Endpoint string        `mapstructure:"endpoint" json:"endpoint"`
	APIKey   string        `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
	Timeout  time.Duration `mapstructure:"timeout" json:"timeout"`
}

// ObservabilityConfig holds OpenTelemetry export settings.
type ObservabilityConfig struct {
	Enabled      bool   `mapstructure:"enabled" json:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name" json:"service_name"`
	Environment  string `mapstructure:"environment" json:"environment"`
}

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys), update MarshalJSON.
type Config struct {
	// Application
	Environment string `mapstructure:"environment" json:"environment"` // development | staging | production
	LogLevel    string `mapstructure:"log_level" json:"log_level"`
	LogJSON     bool   `mapstructure:"log_json" json:"log_json"`

	// AI provider and model configuration
	Provider      string  `mapstructure:"provider" json:"provider"` // "googleai" (default), "openai"
	ModelName     string  `mapstructure:"model_name" json:"model_name"`
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"`
	Temperature   float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens" json:"max_tokens"`

	// Languages
	SupportedLanguages []string `mapstructure:"supported_languages" json:"supported_languages"`
	DefaultLanguage    string   `mapstructure:"default_language" json:"default_language"`

	// Storage
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// HTTP server
	ServerAddr     string   `mapstructure:"server_addr" json:"server_addr"`
	CORSOrigins    []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy     bool     `mapstructure:"trust_proxy" json:"trust_proxy"`
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`

	// Subsystems
	Pipeline      PipelineConfig      `mapstructure:"pipeline" json:"pipeline"`
	Translation   TranslationConfig   `mapstructure:"translation" json:"translation"`
	Observability ObservabilityConfig `mapstructure:"observability" json:"observability"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".sahayak")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".") // Also support current directory

	setDefaults(v)

	v.SetEnvPrefix("SAHAYAK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Missing config file is fine: env vars and defaults cover everything.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", true)

	v.SetDefault("provider", ProviderGoogleAI)
	v.SetDefault("model_name", "gemini-2.0-flash")
	v.SetDefault("embedder_model", "gemini-embedding-001")
	v.SetDefault("temperature", 0.3)
	v.SetDefault("max_tokens", 1024)

	v.SetDefault("supported_languages", []string{"en", "hi", "gu", "mr", "pa", "ta", "bn", "te", "kn", "ml", "or"})
	v.SetDefault("default_language", "en")

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "sahayak")
	v.SetDefault("postgres_password", "")
	v.SetDefault("postgres_db_name", "sahayak")
	v.SetDefault("postgres_ssl_mode", "prefer")

	v.SetDefault("server_addr", "127.0.0.1:8080")
	v.SetDefault("cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("trust_proxy", false)
	v.SetDefault("rate_limit_rps", 1.0)
	v.SetDefault("rate_limit_burst", 10)

	v.SetDefault("pipeline.top_k", 5)
	v.SetDefault("pipeline.min_score", 0.3)
	v.SetDefault("pipeline.confidence_threshold", 0.55)
	v.SetDefault("pipeline.confidence_floor", 0.2)
	v.SetDefault("pipeline.escalation_patterns", []string{
		"talk to a human", "speak to a person", "human agent", "real person",
		"बात करनी है", "अधिकारी से बात",
	})
	v.SetDefault("pipeline.prompt_budget", DefaultPromptBudget)
	v.SetDefault("pipeline.max_history_turns", DefaultMaxHistoryTurns)
	v.SetDefault("pipeline.translate_timeout", 5*time.Second)
	v.SetDefault("pipeline.retrieve_timeout", 10*time.Second)
	v.SetDefault("pipeline.generate_timeout", 60*time.Second)
	v.SetDefault("pipeline.persist_timeout", 5*time.Second)

	v.SetDefault("translation.endpoint", "")
	v.SetDefault("translation.api_key", "")
	v.SetDefault("translation.timeout", 8*time.Second)

	v.SetDefault("observability.enabled", false)
	v.SetDefault("observability.otlp_endpoint", "localhost:4318")
	v.SetDefault("observability.service_name", "sahayak")
	v.SetDefault("observability.environment", "dev")
}

// ConnURL builds the PostgreSQL connection URL for pgx and golang-migrate.
func (c *Config) ConnURL() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.PostgresHost, c.PostgresPort),
		Path:   "/" + c.PostgresDBName,
	}
	if c.PostgresUser != "" {
		if c.PostgresPassword != "" {
			u.User = url.UserPassword(c.PostgresUser, c.PostgresPassword)
		} else {
			u.User = url.User(c.PostgresUser)
		}
	}
	q := url.Values{}
	if c.PostgresSSLMode != "" {
		q.Set("sslmode", c.PostgresSSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// MarshalJSON masks sensitive fields when the configuration is serialized
// (e.g. for debug dumps or the check command).
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	masked := alias(c)
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = "***"
	}
	if masked.Translation.APIKey != "" {
		masked.Translation.APIKey = "***"
	}
	return json.Marshal(masked)
}
