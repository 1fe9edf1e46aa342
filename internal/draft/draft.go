// Package draft turns normalized notes into model-generated post drafts.
package draft

import "errors"

var (
	// ErrGeneration is returned when the model backend fails: unreachable,
	// malformed or empty response, or a safety rejection.
	ErrGeneration = errors.New("generation failed")
	// ErrFormat is returned when the response cannot be parsed into the
	// required paragraph structure. It is reported, never retried: the same
	// prompt is unlikely to fix a structural failure.
	ErrFormat = errors.New("malformed draft")
)

// Draft is the model output for one note. Paragraphs holds exactly the
// configured target count; anything else is rejected during parsing.
type Draft struct {
	Title      string
	Paragraphs []string
	SourcePath string
}
