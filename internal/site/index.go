// Package site maintains the ordered index of published artifacts. The index
// file is the single source of truth for what has been published and in what
// order, and is shared with the site generator as a plain YAML list.
package site

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrCorruptIndex is returned when the persisted index cannot be parsed
	// into a structurally valid entry list. It is fatal to the whole run.
	ErrCorruptIndex = errors.New("corrupt index")
	// ErrDuplicateSlug is returned when inserting an entry whose slug is
	// already present. Callers treat it as a benign skip.
	ErrDuplicateSlug = errors.New("duplicate slug")
)

const dateLayout = "2006-01-02"

// Entry is one published artifact in the index.
type Entry struct {
	Slug  string `yaml:"slug"`
	Title string `yaml:"title"`
	Date  string `yaml:"date"`
}

func (e Entry) date() time.Time {
	d, _ := time.Parse(dateLayout, e.Date)
	return d
}

// Index is the ordered entry sequence, newest first. It is a plain value
// loaded once per run and threaded explicitly through the publisher; there
// is no ambient shared index state.
type Index struct {
	entries []Entry
}

// Load parses the persisted index state. A missing file yields an empty
// index; structurally invalid content yields ErrCorruptIndex rather than
// being silently dropped.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Index{}, nil
		}
		return nil, fmt.Errorf("read index %s: %w", path, err)
	}

	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	for i, e := range entries {
		if err := validateEntry(e); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrCorruptIndex, i, err)
		}
	}

	idx := &Index{entries: entries}
	idx.sort()
	return idx, nil
}

func validateEntry(e Entry) error {
	if e.Slug == "" {
		return errors.New("missing slug")
	}
	if e.Title == "" {
		return errors.New("missing title")
	}
	if _, err := time.Parse(dateLayout, e.Date); err != nil {
		return fmt.Errorf("invalid date %q", e.Date)
	}
	return nil
}

// Insert adds an entry while preserving the reverse-chronological invariant.
// Entries with equal dates keep insertion order: the new entry goes after
// existing ones sharing its date.
func (idx *Index) Insert(e Entry) error {
	if err := validateEntry(e); err != nil {
		return fmt.Errorf("invalid entry: %w", err)
	}
	for _, existing := range idx.entries {
		if existing.Slug == e.Slug {
			return fmt.Errorf("%w: %s", ErrDuplicateSlug, e.Slug)
		}
	}

	pos := len(idx.entries)
	for i, existing := range idx.entries {
		if existing.date().Before(e.date()) {
			pos = i
			break
		}
	}

	idx.entries = append(idx.entries, Entry{})
	copy(idx.entries[pos+1:], idx.entries[pos:])
	idx.entries[pos] = e
	return nil
}

// Persist serializes the index back to durable storage in canonical order.
// The write is all-or-nothing: content goes to a temp file in the same
// directory, is fsynced, then renamed over the target. An interruption at
// any point leaves the previously persisted state intact.
func (idx *Index) Persist(path string) error {
	data, err := yaml.Marshal(idx.entries)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	return writeAtomic(path, data)
}

// Entries returns a copy of the ordered entry sequence.
func (idx *Index) Entries() []Entry {
	out := make([]Entry, len(idx.entries))
	copy(out, idx.entries)
	return out
}

// Slugs returns the set of slugs currently in the index.
func (idx *Index) Slugs() map[string]struct{} {
	out := make(map[string]struct{}, len(idx.entries))
	for _, e := range idx.entries {
		out[e.Slug] = struct{}{}
	}
	return out
}

// Len returns the number of entries.
func (idx *Index) Len() int { return len(idx.entries) }

// Clone returns a disposable copy, used by dry-run mode so the real index is
// never touched.
func (idx *Index) Clone() *Index {
	return &Index{entries: idx.Entries()}
}

// sort restores the newest-first invariant using a stable insertion sort, so
// a hand-edited index file with equal dates keeps its file order.
func (idx *Index) sort() {
	for i := 1; i < len(idx.entries); i++ {
		for j := i; j > 0 && idx.entries[j-1].date().Before(idx.entries[j].date()); j-- {
			idx.entries[j-1], idx.entries[j] = idx.entries[j], idx.entries[j-1]
		}
	}
}
