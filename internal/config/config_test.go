package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

// setRequiredEnv sets the minimum environment for Load to succeed.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("WEBSITE_PATH", t.TempDir())
	t.Setenv("HISTORY_DB_PATH", t.TempDir()+"/tiny.db")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLMProvider != "openai" {
		t.Errorf("LLMProvider = %q, want openai", cfg.LLMProvider)
	}
	if cfg.LLMMaxTokens != 2000 {
		t.Errorf("LLMMaxTokens = %d, want 2000", cfg.LLMMaxTokens)
	}
	if cfg.LLMTemperature != 0.5 {
		t.Errorf("LLMTemperature = %v, want 0.5", cfg.LLMTemperature)
	}
	if cfg.LLMTimeout != 60*time.Second {
		t.Errorf("LLMTimeout = %v, want 60s", cfg.LLMTimeout)
	}
	if cfg.WritingsDir != "content/writings" {
		t.Errorf("WritingsDir = %q", cfg.WritingsDir)
	}
	if cfg.StyleSampleSize != 5 {
		t.Errorf("StyleSampleSize = %d, want 5", cfg.StyleSampleSize)
	}
	if cfg.DraftParagraphs != 2 {
		t.Errorf("DraftParagraphs = %d, want 2", cfg.DraftParagraphs)
	}
	if cfg.GitRemote != "origin" || cfg.GitBranch != "main" {
		t.Errorf("git defaults = %q/%q", cfg.GitRemote, cfg.GitBranch)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("LLM_MODEL", "llama3")
	t.Setenv("LLM_TEMPERATURE", "0.9")
	t.Setenv("LLM_TIMEOUT_SECONDS", "10")
	t.Setenv("DRAFT_PARAGRAPHS", "3")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLMProvider != "ollama" || cfg.LLMModel != "llama3" {
		t.Errorf("provider/model = %q/%q", cfg.LLMProvider, cfg.LLMModel)
	}
	if cfg.LLMTemperature != 0.9 {
		t.Errorf("LLMTemperature = %v", cfg.LLMTemperature)
	}
	if cfg.LLMTimeout != 10*time.Second {
		t.Errorf("LLMTimeout = %v", cfg.LLMTimeout)
	}
	if cfg.DraftParagraphs != 3 {
		t.Errorf("DraftParagraphs = %d", cfg.DraftParagraphs)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing website path",
			env:  map[string]string{"WEBSITE_PATH": ""},
			want: "WebsitePath",
		},
		{
			name: "unknown provider",
			env:  map[string]string{"LLM_PROVIDER": "vertex"},
			want: "LLMProvider",
		},
		{
			name: "temperature out of range",
			env:  map[string]string{"LLM_TEMPERATURE": "3.5"},
			want: "LLMTemperature",
		},
		{
			name: "zero paragraphs",
			env:  map[string]string{"DRAFT_PARAGRAPHS": "0"},
			want: "DraftParagraphs",
		},
		{
			name: "non-numeric max tokens",
			env:  map[string]string{"LLM_MAX_TOKENS": "many"},
			want: "LLM_MAX_TOKENS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}
