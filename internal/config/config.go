package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the memory agent.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	// LLMProvider selects the completion backend: auto, anthropic or mock.
	LLMProvider     string
	AnthropicAPIKey string
	LLMModel        string
	LLMMaxTokens    int

	DatabaseURL string

	TranscriptPath string
	BatchSize      int

	// MaxTurns bounds the respond/update cycles within one Invoke so a
	// misbehaving model cannot loop forever.
	MaxTurns int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "maistro"),
		LLMProvider:      envOrDefault("LLM_PROVIDER", "auto"),
		AnthropicAPIKey:  stringsTrimSpace("ANTHROPIC_API_KEY"),
		LLMModel:         envOrDefault("LLM_MODEL", "claude-sonnet-4-20250514"),
		LLMMaxTokens:     2048,
		DatabaseURL:      stringsTrimSpace("DATABASE_URL"),
		TranscriptPath:   envOrDefault("TRANSCRIPT_PATH", "data/fifa2026.txt"),
		BatchSize:        5,
		MaxTurns:         10,
		ShutdownTimeout:  15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMMaxTokens, err = intFromEnv("LLM_MAX_TOKENS", cfg.LLMMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.BatchSize, err = intFromEnv("BATCH_SIZE", cfg.BatchSize)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxTurns, err = intFromEnv("MAX_TURNS", cfg.MaxTurns)
	if err != nil {
		return Config{}, err
	}

	if cfg.LLMMaxTokens <= 0 {
		return Config{}, fmt.Errorf("LLM_MAX_TOKENS must be positive")
	}
	if cfg.BatchSize <= 0 {
		return Config{}, fmt.Errorf("BATCH_SIZE must be positive")
	}
	if cfg.MaxTurns <= 0 {
		return Config{}, fmt.Errorf("MAX_TURNS must be positive")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case "auto", "anthropic", "mock":
	default:
		return Config{}, fmt.Errorf("invalid LLM_PROVIDER: %q (expected auto|anthropic|mock)", cfg.LLMProvider)
	}
	if strings.EqualFold(cfg.LLMProvider, "anthropic") && cfg.AnthropicAPIKey == "" {
		return Config{}, fmt.Errorf("LLM_PROVIDER=anthropic but ANTHROPIC_API_KEY is not set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}
