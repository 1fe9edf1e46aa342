package note

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

var blankRuns = regexp.MustCompile(`\n\s*\n\s*\n+`)

// normalize flattens note content into plain paragraphs. For markdown input
// it walks the goldmark AST so that emphasis markers, inline code, and link
// syntax collapse to their visible text. If the document opens with a
// heading, that heading is lifted out as the title hint instead of staying
// in the body.
func normalize(body, ext string) (text, headingTitle string) {
	if ext != ".md" {
		return collapseWhitespace(body), ""
	}

	src := []byte(body)
	doc := goldmark.New().Parser().Parse(gmtext.NewReader(src))

	var blocks []string
	first := true
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		block := extractText(n, src)
		if block == "" {
			continue
		}
		if h, ok := n.(*ast.Heading); ok && first && h.Level <= 2 {
			headingTitle = block
			first = false
			continue
		}
		first = false
		blocks = append(blocks, block)
	}

	return collapseWhitespace(strings.Join(blocks, "\n\n")), headingTitle
}

// extractText collects the visible text of a node and its children.
func extractText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(blankRuns.ReplaceAllString(s, "\n\n"))
}
