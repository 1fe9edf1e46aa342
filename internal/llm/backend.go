// Package llm provides model backend adapters. The pipeline depends only on
// the Backend interface; the concrete provider is a configuration value.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_backend.go -package=mocks tiny-agent/internal/llm Backend

// Request holds the parameters for a single completion call.
type Request struct {
	// System is the system prompt establishing the editor persona.
	System string

	// Prompt is the user prompt carrying notes and style exemplars.
	Prompt string

	// MaxTokens caps generated length. If 0, the backend default applies.
	MaxTokens int

	// Temperature controls output variability.
	Temperature float64
}

// Backend is the capability a model provider must offer: submit a prompt,
// get text or an error back.
type Backend interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// TransientError marks a backend failure worth exactly one retry: timeouts,
// rate limits, and server-side errors. Everything else surfaces immediately.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient backend error: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retriable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// classifyStatus maps an HTTP status to a transient or permanent failure.
func classifyStatus(status int, body string) error {
	err := fmt.Errorf("bad status %d: %s", status, body)
	if status == http.StatusTooManyRequests || status >= 500 {
		return &TransientError{Err: err}
	}
	return err
}

// classifyTransport wraps network-level failures. Timeouts and cancellations
// from the request deadline are transient; a caller-cancelled context is not.
func classifyTransport(ctx context.Context, err error) error {
	if ctx.Err() == context.Canceled {
		return fmt.Errorf("request cancelled: %w", err)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &TransientError{Err: err}
	}
	return &TransientError{Err: fmt.Errorf("backend unreachable: %w", err)}
}

// New selects a Backend adapter by provider name. Provider dispatch lives
// here and nowhere else.
func New(provider, baseURL, apiKey, model string, timeout time.Duration) (Backend, error) {
	httpClient := &http.Client{Timeout: timeout}
	switch provider {
	case "openai":
		return &OpenAIBackend{BaseURL: baseURL, APIKey: apiKey, Model: model, client: httpClient}, nil
	case "ollama":
		return &OllamaBackend{BaseURL: baseURL, Model: model, client: httpClient}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", provider)
	}
}
