// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8080"`
	// Gemini credentials. Numbered keys are rotated round-robin; the legacy
	// unnumbered key is used only when no numbered key is set.
	GeminiAPIKey1 string `env:"GEMINI_API_KEY_1"`
	GeminiAPIKey2 string `env:"GEMINI_API_KEY_2"`
	GeminiAPIKey3 string `env:"GEMINI_API_KEY_3"`
	GeminiAPIKey4 string `env:"GEMINI_API_KEY_4"`
	GeminiAPIKey5 string `env:"GEMINI_API_KEY_5"`
	GeminiAPIKey6 string `env:"GEMINI_API_KEY_6"`
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiModel   string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	// MaxPromptChars caps outbound prompt size; prompts above it are truncated.
	MaxPromptChars int `env:"MAX_PROMPT_CHARS" envDefault:"100000"`
	// TokenLimit is the estimated-token threshold above which documents are
	// processed section by section instead of in one completion call.
	TokenLimit      int    `env:"TOKEN_LIMIT" envDefault:"30000"`
	RedisURL        string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"ai-doc-companion"`
	// PromptConfigPath optionally points at a YAML file overriding the
	// built-in prompt templates.
	PromptConfigPath      string        `env:"PROMPT_CONFIG_PATH" envDefault:""`
	MaxUploadMB           int64         `env:"MAX_UPLOAD_MB" envDefault:"10"`
	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"30"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"300s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	// AI Backoff Configuration
	AIBackoffMaxElapsedTime  time.Duration `env:"AI_BACKOFF_MAX_ELAPSED_TIME" envDefault:"90s"`
	AIBackoffInitialInterval time.Duration `env:"AI_BACKOFF_INITIAL_INTERVAL" envDefault:"2s"`
	AIBackoffMaxInterval     time.Duration `env:"AI_BACKOFF_MAX_INTERVAL" envDefault:"20s"`
	AIBackoffMultiplier      float64       `env:"AI_BACKOFF_MULTIPLIER" envDefault:"1.5"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// GeminiAPIKeys returns the configured credential pool in rotation order.
// Numbered keys win; the legacy GEMINI_API_KEY is the fallback when none of
// them is set. An empty slice means no credentials are configured.
func (c Config) GeminiAPIKeys() []string {
	numbered := []string{
		c.GeminiAPIKey1, c.GeminiAPIKey2, c.GeminiAPIKey3,
		c.GeminiAPIKey4, c.GeminiAPIKey5, c.GeminiAPIKey6,
	}
	keys := make([]string, 0, len(numbered))
	for _, k := range numbered {
		if k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 && c.GeminiAPIKey != "" {
		keys = append(keys, c.GeminiAPIKey)
	}
	return keys
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// GetAIBackoffConfig returns backoff configuration appropriate for the current
// environment. Test environments use much shorter timeouts.
func (c Config) GetAIBackoffConfig() (maxElapsedTime, initialInterval, maxInterval time.Duration, multiplier float64) {
	if c.IsTest() {
		return 2 * time.Second, 50 * time.Millisecond, 500 * time.Millisecond, 2.0
	}
	return c.AIBackoffMaxElapsedTime, c.AIBackoffInitialInterval, c.AIBackoffMaxInterval, c.AIBackoffMultiplier
}
