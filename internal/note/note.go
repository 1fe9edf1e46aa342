// Package note reads raw note files and normalizes them into pipeline input.
package note

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the note path does not resolve to readable text.
	ErrNotFound = errors.New("note not found")
	// ErrEmptyNote is returned when the note is blank after normalization.
	ErrEmptyNote = errors.New("note is empty")
	// ErrUnsupportedType is returned for file extensions the reader does not accept.
	ErrUnsupportedType = errors.New("unsupported note file type")
)

// Note is the normalized input to a pipeline run. It is immutable after Read
// returns it.
type Note struct {
	SourcePath   string
	RawText      string
	DetectedDate time.Time
	TitleHint    string
}
