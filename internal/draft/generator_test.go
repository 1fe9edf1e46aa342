package draft

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"tiny-agent/internal/llm"
	"tiny-agent/internal/llm/mocks"
	"tiny-agent/internal/note"
	"tiny-agent/internal/style"
)

func testNote() *note.Note {
	return &note.Note{
		SourcePath:   "notes/today.md",
		RawText:      "Some thoughts about software.",
		DetectedDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestGenerator_Generate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	backend := mocks.NewMockBackend(ctrl)
	backend.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		Return(`{"title": "Software Thoughts", "content": "First paragraph.\n\nSecond paragraph."}`, nil)

	gen := NewGenerator(backend, Options{MaxTokens: 2000, Temperature: 0.5, Paragraphs: 2})
	d, err := gen.Generate(context.Background(), testNote(), nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if d.Title != "Software Thoughts" {
		t.Errorf("Title = %q, want Software Thoughts", d.Title)
	}
	if len(d.Paragraphs) != 2 {
		t.Fatalf("Paragraphs = %d, want 2", len(d.Paragraphs))
	}
	if d.SourcePath != "notes/today.md" {
		t.Errorf("SourcePath = %q, want notes/today.md", d.SourcePath)
	}
}

func TestGenerator_Generate_ExemplarsInPrompt(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	backend := mocks.NewMockBackend(ctrl)
	backend.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req llm.Request) (string, error) {
			if req.System == "" {
				t.Error("system prompt should be set")
			}
			for _, want := range []string{"Prior Post", "Prior body text.", "Some thoughts about software."} {
				if !strings.Contains(req.Prompt, want) {
					t.Errorf("prompt missing %q", want)
				}
			}
			return `{"title": "T", "content": "One.\n\nTwo."}`, nil
		})

	gen := NewGenerator(backend, Options{Paragraphs: 2})
	exemplars := []style.Exemplar{{Title: "Prior Post", Body: "Prior body text."}}
	if _, err := gen.Generate(context.Background(), testNote(), exemplars); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
}

func TestGenerator_Generate_RetriesTransientOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	backend := mocks.NewMockBackend(ctrl)
	transient := &llm.TransientError{Err: errors.New("rate limited")}
	gomock.InOrder(
		backend.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", transient),
		backend.EXPECT().Complete(gomock.Any(), gomock.Any()).
			Return(`{"title": "T", "content": "One.\n\nTwo."}`, nil),
	)

	gen := NewGenerator(backend, Options{Paragraphs: 2})
	d, err := gen.Generate(context.Background(), testNote(), nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if d.Title != "T" {
		t.Errorf("Title = %q, want T", d.Title)
	}
}

func TestGenerator_Generate_TransientFailsAfterSingleRetry(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	backend := mocks.NewMockBackend(ctrl)
	transient := &llm.TransientError{Err: errors.New("timeout")}
	// Exactly two calls: the original and one retry, never more.
	backend.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", transient).Times(2)

	gen := NewGenerator(backend, Options{Paragraphs: 2})
	_, err := gen.Generate(context.Background(), testNote(), nil)
	if !errors.Is(err, ErrGeneration) {
		t.Errorf("Generate() error = %v, want ErrGeneration", err)
	}
}

func TestGenerator_Generate_PermanentErrorNotRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	backend := mocks.NewMockBackend(ctrl)
	backend.EXPECT().Complete(gomock.Any(), gomock.Any()).
		Return("", errors.New("bad status 400: invalid model")).
		Times(1)

	gen := NewGenerator(backend, Options{Paragraphs: 2})
	_, err := gen.Generate(context.Background(), testNote(), nil)
	if !errors.Is(err, ErrGeneration) {
		t.Errorf("Generate() error = %v, want ErrGeneration", err)
	}
}

func TestGenerator_Generate_FormatErrorNotRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	backend := mocks.NewMockBackend(ctrl)
	// Three paragraphs where two are required: structural failure, one call only.
	backend.EXPECT().Complete(gomock.Any(), gomock.Any()).
		Return(`{"title": "T", "content": "One.\n\nTwo.\n\nThree."}`, nil).
		Times(1)

	gen := NewGenerator(backend, Options{Paragraphs: 2})
	_, err := gen.Generate(context.Background(), testNote(), nil)
	if !errors.Is(err, ErrFormat) {
		t.Errorf("Generate() error = %v, want ErrFormat", err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		paragraphs int
		wantErr    error
		wantTitle  string
	}{
		{
			name:       "plain json",
			text:       `{"title": "A Title", "content": "P1.\n\nP2."}`,
			paragraphs: 2,
			wantTitle:  "A Title",
		},
		{
			name:       "json code fence",
			text:       "```json\n{\"title\": \"Fenced\", \"content\": \"P1.\\n\\nP2.\"}\n```",
			paragraphs: 2,
			wantTitle:  "Fenced",
		},
		{
			name:       "bare code fence",
			text:       "```\n{\"title\": \"Bare\", \"content\": \"P1.\\n\\nP2.\"}\n```",
			paragraphs: 2,
			wantTitle:  "Bare",
		},
		{
			name:       "not json",
			text:       "Here is your post: great things happened.",
			paragraphs: 2,
			wantErr:    ErrFormat,
		},
		{
			name:       "missing title",
			text:       `{"title": "", "content": "P1.\n\nP2."}`,
			paragraphs: 2,
			wantErr:    ErrFormat,
		},
		{
			name:       "too few paragraphs",
			text:       `{"title": "T", "content": "Only one paragraph."}`,
			paragraphs: 2,
			wantErr:    ErrFormat,
		},
		{
			name:       "empty response",
			text:       "   ",
			paragraphs: 2,
			wantErr:    ErrGeneration,
		},
		{
			name:       "single paragraph policy",
			text:       `{"title": "T", "content": "Just the one."}`,
			paragraphs: 1,
			wantTitle:  "T",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := parse(tt.text, tt.paragraphs)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("parse() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse() error = %v", err)
			}
			if d.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", d.Title, tt.wantTitle)
			}
			if len(d.Paragraphs) != tt.paragraphs {
				t.Errorf("Paragraphs = %d, want %d", len(d.Paragraphs), tt.paragraphs)
			}
		})
	}
}

