package ingest

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownText strips markdown syntax from src, keeping one line per block.
func MarkdownText(src []byte) string {
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	var b strings.Builder
	lastNewline := true
	write := func(p []byte) {
		if len(p) == 0 {
			return
		}
		b.Write(p)
		lastNewline = p[len(p)-1] == '\n'
	}

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			switch node := n.(type) {
			case *ast.Text:
				write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					write([]byte{'\n'})
				}
			case *ast.String:
				write(node.Value)
			case *ast.CodeBlock, *ast.FencedCodeBlock:
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					write(seg.Value(src))
				}
				return ast.WalkSkipChildren, nil
			}
			return ast.WalkContinue, nil
		}

		if n.Type() == ast.TypeBlock && !lastNewline {
			write([]byte{'\n'})
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(b.String())
}
