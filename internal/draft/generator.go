package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tiny-agent/internal/contextutil"
	"tiny-agent/internal/llm"
	"tiny-agent/internal/note"
	"tiny-agent/internal/style"
)

// Options configures generation.
type Options struct {
	// MaxTokens caps generated length.
	MaxTokens int
	// Temperature controls output variability.
	Temperature float64
	// Timeout bounds each backend call. A call exceeding it is treated as a
	// transient failure eligible for the single retry.
	Timeout time.Duration
	// Paragraphs is the required paragraph count of the post body.
	Paragraphs int
}

// Generator produces Drafts through a configured model backend.
type Generator struct {
	backend llm.Backend
	opts    Options
}

// NewGenerator creates a generator over the given backend.
func NewGenerator(backend llm.Backend, opts Options) *Generator {
	if opts.Paragraphs <= 0 {
		opts.Paragraphs = 2
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Generator{backend: backend, opts: opts}
}

// parsedResponse is the JSON shape the model is instructed to return.
type parsedResponse struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Generate requests a completion for the note, retrying at most once on
// transient backend failure, and parses it into a Draft. Format failures are
// never retried.
func (g *Generator) Generate(ctx context.Context, n *note.Note, exemplars []style.Exemplar) (*Draft, error) {
	logger := contextutil.LoggerFromContext(ctx)

	req := llm.Request{
		System:      systemPrompt,
		Prompt:      buildUserPrompt(n.RawText, exemplars, g.opts.Paragraphs),
		MaxTokens:   g.opts.MaxTokens,
		Temperature: g.opts.Temperature,
	}

	text, err := g.complete(ctx, req)
	if err != nil && llm.IsTransient(err) {
		logger.WarnContext(ctx, "transient backend failure, retrying once", "note", n.SourcePath, "error", err)
		text, err = g.complete(ctx, req)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	d, err := parse(text, g.opts.Paragraphs)
	if err != nil {
		return nil, err
	}
	d.SourcePath = n.SourcePath

	logger.InfoContext(ctx, "generated draft", "note", n.SourcePath, "title", d.Title)
	return d, nil
}

// complete runs one bounded backend call.
func (g *Generator) complete(ctx context.Context, req llm.Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()
	return g.backend.Complete(callCtx, req)
}

// parse decodes the model response into a Draft, enforcing the paragraph
// policy. The result is never padded or truncated to fit.
func parse(text string, paragraphs int) (*Draft, error) {
	cleaned := stripFences(strings.TrimSpace(text))
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty response", ErrGeneration)
	}

	var resp parsedResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, fmt.Errorf("%w: not valid JSON: %v", ErrFormat, err)
	}
	if strings.TrimSpace(resp.Title) == "" {
		return nil, fmt.Errorf("%w: missing title", ErrFormat)
	}

	var parts []string
	for _, p := range strings.Split(resp.Content, "\n\n") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) != paragraphs {
		return nil, fmt.Errorf("%w: got %d paragraphs, want %d", ErrFormat, len(parts), paragraphs)
	}

	return &Draft{
		Title:      strings.TrimSpace(resp.Title),
		Paragraphs: parts,
	}, nil
}

// stripFences removes a single wrapping markdown code fence, which models
// like to add around JSON output.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
