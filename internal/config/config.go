// Package config loads pipeline configuration from environment variables,
// with optional .env file support.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the pipeline.
type Config struct {
	// Model backend
	LLMProvider    string
	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeout     time.Duration

	// Website layout
	WebsitePath string
	WritingsDir string // relative to WebsitePath
	IndexFile   string // relative to WebsitePath

	// Generation policy
	StyleSampleSize int
	DraftParagraphs int

	// Git and deploy
	GitRemote     string
	GitBranch     string
	DeployHookURL string

	// Ledger
	HistoryDBPath string

	// Logging
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and validates it.
// A .env file in the current directory is loaded first; variables already
// set in the environment take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LLMProvider:   getEnv("LLM_PROVIDER", "openai"),
		LLMBaseURL:    getEnv("LLM_BASE_URL", "https://api.openai.com"),
		LLMAPIKey:     getEnv("LLM_API_KEY", ""),
		LLMModel:      getEnv("LLM_MODEL", "gpt-4o-mini"),
		WebsitePath:   getEnv("WEBSITE_PATH", ""),
		WritingsDir:   getEnv("WRITINGS_DIR", "content/writings"),
		IndexFile:     getEnv("INDEX_FILE", "content/writings/index.yaml"),
		GitRemote:     getEnv("GIT_REMOTE", "origin"),
		GitBranch:     getEnv("GIT_BRANCH", "main"),
		DeployHookURL: getEnv("DEPLOY_HOOK_URL", ""),
		HistoryDBPath: getEnv("HISTORY_DB_PATH", "./data/tiny.db"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.LLMMaxTokens, err = getEnvInt("LLM_MAX_TOKENS", 2000); err != nil {
		return nil, err
	}
	if cfg.LLMTemperature, err = getEnvFloat("LLM_TEMPERATURE", 0.5); err != nil {
		return nil, err
	}
	timeoutSecs, err := getEnvInt("LLM_TIMEOUT_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	cfg.LLMTimeout = time.Duration(timeoutSecs) * time.Second
	if cfg.StyleSampleSize, err = getEnvInt("STYLE_SAMPLE_SIZE", 5); err != nil {
		return nil, err
	}
	if cfg.DraftParagraphs, err = getEnvInt("DRAFT_PARAGRAPHS", 2); err != nil {
		return nil, err
	}

	cfg.LogLevel = parseLogLevel(getEnv("LOG_LEVEL", "info"))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Create the ledger directory up front so the first run can open it.
	if dir := filepath.Dir(cfg.HistoryDBPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LLMProvider, validation.Required, validation.In("openai", "ollama")),
		validation.Field(&c.LLMBaseURL, validation.Required),
		validation.Field(&c.LLMModel, validation.Required),
		validation.Field(&c.LLMMaxTokens, validation.Min(1)),
		validation.Field(&c.LLMTemperature, validation.Min(0.0), validation.Max(2.0)),
		validation.Field(&c.WebsitePath, validation.Required),
		validation.Field(&c.WritingsDir, validation.Required),
		validation.Field(&c.IndexFile, validation.Required),
		validation.Field(&c.StyleSampleSize, validation.Min(0)),
		validation.Field(&c.DraftParagraphs, validation.Min(1)),
		validation.Field(&c.LogFormat, validation.In("text", "json")),
	)
}

// WritingsPath returns the absolute artifacts directory.
func (c *Config) WritingsPath() string {
	return filepath.Join(c.WebsitePath, c.WritingsDir)
}

// IndexPath returns the absolute index file path.
func (c *Config) IndexPath() string {
	return filepath.Join(c.WebsitePath, c.IndexFile)
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return v, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return v, nil
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
