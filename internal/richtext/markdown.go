package richtext

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

// ToMarkdown renders the tree as markdown by way of its sanitized HTML.
func ToMarkdown(n *Node) (string, error) {
	rendered := RenderHTML(n)
	if rendered == "" {
		return "", nil
	}
	md, err := htmltomarkdown.ConvertString(rendered)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// FromMarkdown parses markdown into a document tree. Raw HTML in the source
// is kept as plain text; it never becomes markup.
func FromMarkdown(src string) *Node {
	extensions := parser.CommonExtensions | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	root := p.Parse([]byte(src))

	doc := Doc()
	doc.Children = convertBlocks(root.GetChildren())
	return doc
}

func convertBlocks(nodes []ast.Node) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if converted := convertBlock(n); converted != nil {
			out = append(out, converted)
		}
	}
	return out
}

func convertBlock(n ast.Node) *Node {
	switch v := n.(type) {
	case *ast.Paragraph:
		return Element(TypeParagraph, nil, convertInline(v.GetChildren(), nil)...)
	case *ast.Heading:
		return Element(TypeHeading, map[string]any{"level": float64(v.Level)}, convertInline(v.GetChildren(), nil)...)
	case *ast.List:
		typ := TypeBulletList
		var attrs map[string]any
		if v.ListFlags&ast.ListTypeOrdered != 0 {
			typ = TypeOrderedList
			if v.Start > 1 {
				attrs = map[string]any{"start": float64(v.Start)}
			}
		}
		return Element(typ, attrs, convertBlocks(v.GetChildren())...)
	case *ast.ListItem:
		return Element(TypeListItem, nil, convertBlocks(v.GetChildren())...)
	case *ast.BlockQuote:
		return Element(TypeBlockquote, nil, convertBlocks(v.GetChildren())...)
	case *ast.CodeBlock:
		var attrs map[string]any
		if lang := strings.TrimSpace(string(v.Info)); lang != "" {
			attrs = map[string]any{"language": lang}
		}
		code := strings.TrimRight(string(v.Literal), "\n")
		if code == "" {
			return Element(TypeCodeBlock, attrs)
		}
		return Element(TypeCodeBlock, attrs, Text(code))
	case *ast.HorizontalRule:
		return Element(TypeHorizontalRule, nil)
	case *ast.HTMLBlock:
		return Paragraph(strings.TrimSpace(string(v.Literal)))
	default:
		// Tables, footnotes and the like degrade to their text.
		children := convertInline(n.GetChildren(), nil)
		if len(children) == 0 {
			return nil
		}
		return Element(TypeParagraph, nil, children...)
	}
}

func convertInline(nodes []ast.Node, marks []Mark) []*Node {
	var out []*Node
	for _, n := range nodes {
		switch v := n.(type) {
		case *ast.Text:
			if len(v.Literal) > 0 {
				out = append(out, Text(string(v.Literal), copyMarks(marks)...))
			}
			out = append(out, convertInline(v.GetChildren(), marks)...)
		case *ast.Strong:
			out = append(out, convertInline(v.GetChildren(), withMark(marks, Mark{Type: MarkBold}))...)
		case *ast.Emph:
			out = append(out, convertInline(v.GetChildren(), withMark(marks, Mark{Type: MarkItalic}))...)
		case *ast.Del:
			out = append(out, convertInline(v.GetChildren(), withMark(marks, Mark{Type: MarkStrike}))...)
		case *ast.Code:
			out = append(out, Text(string(v.Literal), withMark(marks, Mark{Type: MarkCode})...))
		case *ast.Link:
			link := Mark{Type: MarkLink, Attrs: map[string]any{"href": string(v.Destination)}}
			out = append(out, convertInline(v.GetChildren(), withMark(marks, link))...)
		case *ast.Image:
			attrs := map[string]any{"src": string(v.Destination)}
			if alt := PlainText(Element(TypeParagraph, nil, convertInline(v.GetChildren(), nil)...)); alt != "" {
				attrs["alt"] = alt
			}
			if len(v.Title) > 0 {
				attrs["title"] = string(v.Title)
			}
			out = append(out, Element(TypeImage, attrs))
		case *ast.Hardbreak:
			out = append(out, Element(TypeHardBreak, nil))
		case *ast.Softbreak:
			out = append(out, Text(" ", copyMarks(marks)...))
		case *ast.HTMLSpan:
			out = append(out, Text(string(v.Literal), copyMarks(marks)...))
		default:
			out = append(out, convertInline(n.GetChildren(), marks)...)
		}
	}
	return out
}

func withMark(marks []Mark, m Mark) []Mark {
	next := make([]Mark, 0, len(marks)+1)
	next = append(next, marks...)
	return append(next, m)
}

func copyMarks(marks []Mark) []Mark {
	if len(marks) == 0 {
		return nil
	}
	return append([]Mark(nil), marks...)
}
