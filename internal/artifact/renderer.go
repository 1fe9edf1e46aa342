// Package artifact renders drafts into publishable page files. Rendering is
// pure: file writing happens under the publisher's control so dry-run can
// skip it.
package artifact

import (
	"fmt"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tiny-agent/internal/draft"
)

const maxSlugLen = 60

// Artifact is the rendered, publishable unit derived from a Draft.
type Artifact struct {
	Slug     string
	Date     time.Time
	Title    string
	Body     string
	FilePath string
	Content  []byte
}

// pageFrontmatter is the metadata block the site generator reads from each
// post file. Field order matters for readable diffs.
type pageFrontmatter struct {
	Title string `yaml:"title"`
	Date  string `yaml:"date"`
	Slug  string `yaml:"slug"`
}

// Render converts a draft into an artifact. existingSlugs is the set of
// slugs already in the index; a colliding slug gets a numeric suffix (-2,
// -3, ...). The resolution is deterministic: the same title against an
// unchanged index always yields the same final slug.
func Render(d *draft.Draft, date time.Time, writingsDir string, existingSlugs map[string]struct{}) (*Artifact, error) {
	if d == nil || d.Title == "" {
		return nil, fmt.Errorf("draft has no title")
	}

	slug := resolveCollision(Slugify(d.Title, date), existingSlugs)
	body := strings.Join(d.Paragraphs, "\n\n")

	fm, err := yaml.Marshal(pageFrontmatter{
		Title: d.Title,
		Date:  date.Format("2006-01-02"),
		Slug:  slug,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal frontmatter: %w", err)
	}

	content := fmt.Sprintf("---\n%s---\n\n%s\n", fm, body)

	return &Artifact{
		Slug:     slug,
		Date:     date,
		Title:    d.Title,
		Body:     body,
		FilePath: path.Join(writingsDir, slug+".md"),
		Content:  []byte(content),
	}, nil
}

// Slugify derives a URL-safe slug from a title: lowercased, runs of
// non-alphanumerics collapsed to single hyphens, bounded length. An empty
// result falls back to a date-derived slug.
func Slugify(title string, date time.Time) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.Trim(slug[:maxSlugLen], "-")
	}
	if slug == "" {
		slug = "post-" + date.Format("20060102")
	}
	return slug
}

// resolveCollision appends the first free numeric suffix when the base slug
// is taken.
func resolveCollision(slug string, existing map[string]struct{}) string {
	if _, taken := existing[slug]; !taken {
		return slug
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", slug, i)
		if _, taken := existing[candidate]; !taken {
			return candidate
		}
	}
}
