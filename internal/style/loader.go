// Package style builds the exemplar set that conditions generation on the
// author's prior published posts.
package style

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Exemplar is one prior post sampled for style reference. The set is
// read-only and rebuilt on every run; there is no cross-run cache.
type Exemplar struct {
	Title string
	Body  string
}

type postFrontmatter struct {
	Title string `yaml:"title"`
	Date  string `yaml:"date"`
}

type candidate struct {
	exemplar Exemplar
	date     string
	filename string
}

// Load reads up to k prior posts from dir, most recent first. An absent or
// empty directory is not an error: generation simply proceeds with a neutral
// style. The same directory state always yields the same exemplar sequence.
func Load(dir string, k int) ([]Exemplar, error) {
	if k <= 0 {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read posts dir %s: %w", dir, err)
	}

	var candidates []candidate
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read post %s: %w", path, err)
		}
		fm, body := parsePost(string(data))
		if strings.TrimSpace(body) == "" {
			continue
		}
		title := fm.Title
		if title == "" {
			title = strings.TrimSuffix(entry.Name(), ".md")
		}
		candidates = append(candidates, candidate{
			exemplar: Exemplar{Title: title, Body: strings.TrimSpace(body)},
			date:     fm.Date,
			filename: entry.Name(),
		})
	}

	// Most recent first; filename breaks date ties so ordering is stable
	// across runs.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].date != candidates[j].date {
			return candidates[i].date > candidates[j].date
		}
		return candidates[i].filename > candidates[j].filename
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	exemplars := make([]Exemplar, len(candidates))
	for i, c := range candidates {
		exemplars[i] = c.exemplar
	}
	return exemplars, nil
}

// parsePost splits a published post into frontmatter metadata and body.
func parsePost(content string) (postFrontmatter, string) {
	var fm postFrontmatter
	if !strings.HasPrefix(content, "---") {
		return fm, content
	}
	parts := strings.SplitN(content, "---", 3)
	if len(parts) < 3 {
		return fm, content
	}
	if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
		return postFrontmatter{}, content
	}
	return fm, parts[2]
}
