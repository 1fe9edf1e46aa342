package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		wantErr  bool
	}{
		{"openai provider", "openai", false},
		{"ollama provider", "ollama", false},
		{"unknown provider", "vertex", true},
		{"empty provider", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := New(tt.provider, "http://localhost:8080", "key", "model", 30*time.Second)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && backend == nil {
				t.Error("New() returned nil backend")
			}
		})
	}
}

func TestOpenAIBackend_Complete(t *testing.T) {
	tests := []struct {
		name       string
		serverResp func(w http.ResponseWriter, r *http.Request)
		wantText   string
		wantErr    bool
		transient  bool
	}{
		{
			name: "successful completion",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if r.URL.Path != "/v1/chat/completions" {
					t.Errorf("expected /v1/chat/completions, got %s", r.URL.Path)
				}
				if !strings.Contains(r.Header.Get("Authorization"), "Bearer") {
					t.Error("missing Authorization header")
				}

				var req ChatRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("failed to decode request: %v", err)
				}
				if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
					t.Errorf("expected system+user messages, got %+v", req.Messages)
				}
				if req.MaxTokens != 2000 {
					t.Errorf("MaxTokens = %d, want 2000", req.MaxTokens)
				}

				resp := ChatResponse{
					ID: "test-id",
					Choices: []ChatChoice{
						{Message: ChatMessage{Role: "assistant", Content: "generated text"}},
					},
				}
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(resp)
			},
			wantText: "generated text",
		},
		{
			name: "rate limited is transient",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			wantErr:   true,
			transient: true,
		},
		{
			name: "server error is transient",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantErr:   true,
			transient: true,
		},
		{
			name: "bad request is permanent",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			},
			wantErr:   true,
			transient: false,
		},
		{
			name: "empty choices",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(ChatResponse{ID: "x"})
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResp))
			defer server.Close()

			backend, err := New("openai", server.URL, "test-key", "test-model", 5*time.Second)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			text, err := backend.Complete(context.Background(), Request{
				System:      "system prompt",
				Prompt:      "user prompt",
				MaxTokens:   2000,
				Temperature: 0.5,
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Complete() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && IsTransient(err) != tt.transient {
				t.Errorf("IsTransient(%v) = %v, want %v", err, IsTransient(err), tt.transient)
			}
			if text != tt.wantText && !tt.wantErr {
				t.Errorf("Complete() = %q, want %q", text, tt.wantText)
			}
		})
	}
}

func TestOpenAIBackend_Complete_TimeoutIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	backend, err := New("openai", server.URL, "key", "model", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = backend.Complete(context.Background(), Request{Prompt: "hi"})
	if err == nil {
		t.Fatal("Complete() expected timeout error")
	}
	if !IsTransient(err) {
		t.Errorf("timeout should be transient, got %v", err)
	}
}

func TestOllamaBackend_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("expected /api/generate, got %s", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Stream {
			t.Error("stream should be disabled")
		}
		if req.System == "" {
			t.Error("system prompt should be forwarded")
		}
		_ = json.NewEncoder(w).Encode(ollamaResponse{Response: "ollama text", Done: true})
	}))
	defer server.Close()

	backend, err := New("ollama", server.URL, "", "llama3", 5*time.Second)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	text, err := backend.Complete(context.Background(), Request{
		System: "be helpful",
		Prompt: "write",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "ollama text" {
		t.Errorf("Complete() = %q, want %q", text, "ollama text")
	}
}
