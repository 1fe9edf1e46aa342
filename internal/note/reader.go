package note

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var supportedExtensions = map[string]struct{}{
	".md":    {},
	".txt":   {},
	".notes": {},
}

var filenameDatePattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)

// frontmatter holds the metadata fields the reader cares about. Unknown
// fields are ignored.
type frontmatter struct {
	Title string `yaml:"title"`
	Date  string `yaml:"date"`
}

// Read loads a note file and returns the normalized Note.
// It fails with ErrNotFound if the path is not readable, ErrUnsupportedType
// for unrecognized extensions, and ErrEmptyNote if nothing remains after
// normalization.
func Read(path string) (*Note, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := supportedExtensions[ext]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	content := strings.ReplaceAll(string(raw), "\r\n", "\n")

	fm, body := splitFrontmatter(content)

	var meta frontmatter
	if fm != "" {
		// Malformed frontmatter is treated as body text rather than an error.
		if err := yaml.Unmarshal([]byte(fm), &meta); err != nil {
			body = content
		}
	}

	text, headingTitle := normalize(body, ext)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyNote, path)
	}

	titleHint := meta.Title
	if titleHint == "" {
		titleHint = headingTitle
	}

	return &Note{
		SourcePath:   path,
		RawText:      text,
		DetectedDate: detectDate(meta.Date, path),
		TitleHint:    titleHint,
	}, nil
}

// splitFrontmatter separates a leading YAML frontmatter block from the body.
// Returns ("", content) when no frontmatter is present.
func splitFrontmatter(content string) (fm, body string) {
	if !strings.HasPrefix(content, "---") {
		return "", content
	}
	parts := strings.SplitN(content, "---", 3)
	if len(parts) < 3 {
		return "", content
	}
	return parts[1], strings.TrimLeft(parts[2], "\n")
}

// detectDate resolves the note date: frontmatter date first, then a
// YYYY-MM-DD token in the filename, falling back to today.
func detectDate(fmDate, path string) time.Time {
	if fmDate != "" {
		if d, err := time.Parse("2006-01-02", strings.TrimSpace(fmDate)); err == nil {
			return d
		}
	}
	if m := filenameDatePattern.FindString(filepath.Base(path)); m != "" {
		if d, err := time.Parse("2006-01-02", m); err == nil {
			return d
		}
	}
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
