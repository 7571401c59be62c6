// Package normalize prepares text before it is diffed or matched: line endings are unified, and a markdown rewrite can be reduced to its plain text.
package normalize

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// LineEndings converts CRLF and lone CR line endings to LF.
func LineEndings(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// Text applies LineEndings and, if stripMarkdown is set, StripMarkdown.
func Text(s string, stripMarkdown bool) string {
	s = LineEndings(s)
	if stripMarkdown {
		s = StripMarkdown(s)
	}
	return s
}

// StripMarkdown returns the plain text of markdown document s.
//
// Paragraphs, headings, and code blocks become blocks of text separated by a blank line; consecutive list items are separated by a single newline. Inline markup
// (emphasis, code spans, links, images) is dropped while its text is kept. Raw HTML and thematic breaks are dropped.
func StripMarkdown(s string) string {
	src := []byte(s)
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	var b strings.Builder
	var prev ast.Node
	// Walk only fails if the callback does, and neither callback here returns an error.
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindHTMLBlock, ast.KindThematicBreak:
			return ast.WalkSkipChildren, nil
		case ast.KindParagraph, ast.KindHeading, ast.KindTextBlock, ast.KindCodeBlock, ast.KindFencedCodeBlock:
		default:
			return ast.WalkContinue, nil
		}

		if prev != nil {
			if inList(prev) && inList(n) {
				b.WriteString("\n")
			} else {
				b.WriteString("\n\n")
			}
		}
		prev = n

		if n.Kind() == ast.KindCodeBlock || n.Kind() == ast.KindFencedCodeBlock {
			writeLines(&b, n, src)
		} else {
			writeInline(&b, n, src)
		}
		return ast.WalkSkipChildren, nil
	})
	return b.String()
}

func inList(n ast.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == ast.KindListItem {
			return true
		}
	}
	return false
}

// writeLines writes the raw lines of a code block, without its final newline.
func writeLines(b *strings.Builder, n ast.Node, src []byte) {
	var code strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(src))
	}
	b.WriteString(strings.TrimSuffix(code.String(), "\n"))
}

// writeInline writes the text content of the inline children of block n.
func writeInline(b *strings.Builder, n ast.Node, src []byte) {
	// Never fails; see StripMarkdown.
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(src))
			if c.SoftLineBreak() || c.HardLineBreak() {
				b.WriteString("\n")
			}
		case *ast.String:
			b.Write(c.Value)
		case *ast.AutoLink:
			b.Write(c.Label(src))
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
}
