package richtext

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the sanitizer applied to every rendered document. Attributes on
// nodes come from stored JSON, so hrefs and image sources are untrusted.
var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w+#-]+$`)).OnElements("code")
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// RenderHTML renders the tree to sanitized HTML.
func RenderHTML(n *Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	renderNode(&b, n)
	return policy.Sanitize(b.String())
}

func renderNode(b *strings.Builder, n *Node) {
	if n.Kind == KindText {
		renderText(b, n)
		return
	}

	switch n.Type {
	case TypeParagraph:
		wrap(b, "p", "", n)
	case TypeHeading:
		level := n.attrInt("level", 2)
		if level < 1 || level > 6 {
			level = 2
		}
		wrap(b, "h"+strconv.Itoa(level), "", n)
	case TypeBulletList:
		wrap(b, "ul", "", n)
	case TypeOrderedList:
		attrs := ""
		if start := n.attrInt("start", 1); start != 1 {
			attrs = ` start="` + strconv.Itoa(start) + `"`
		}
		wrap(b, "ol", attrs, n)
	case TypeListItem:
		wrap(b, "li", "", n)
	case TypeBlockquote:
		wrap(b, "blockquote", "", n)
	case TypeCodeBlock:
		b.WriteString("<pre><code")
		if lang := n.attrString("language"); lang != "" {
			b.WriteString(` class="language-` + html.EscapeString(lang) + `"`)
		}
		b.WriteString(">")
		// Marks are meaningless inside code blocks.
		b.WriteString(html.EscapeString(PlainTextRaw(n)))
		b.WriteString("</code></pre>")
	case TypeHorizontalRule:
		b.WriteString("<hr>")
	case TypeHardBreak:
		b.WriteString("<br>")
	case TypeImage:
		b.WriteString(`<img src="` + html.EscapeString(n.attrString("src")) + `"`)
		if alt := n.attrString("alt"); alt != "" {
			b.WriteString(` alt="` + html.EscapeString(alt) + `"`)
		}
		if title := n.attrString("title"); title != "" {
			b.WriteString(` title="` + html.EscapeString(title) + `"`)
		}
		b.WriteString(">")
	default:
		renderChildren(b, n)
	}
}

func wrap(b *strings.Builder, tag, attrs string, n *Node) {
	b.WriteString("<" + tag + attrs + ">")
	renderChildren(b, n)
	b.WriteString("</" + tag + ">")
}

func renderChildren(b *strings.Builder, n *Node) {
	for _, c := range n.Children {
		renderNode(b, c)
	}
}

func renderText(b *strings.Builder, n *Node) {
	open := make([]string, 0, len(n.Marks))
	closing := make([]string, 0, len(n.Marks))
	for _, m := range n.Marks {
		var tag, attrs string
		switch m.Type {
		case MarkBold:
			tag = "strong"
		case MarkItalic:
			tag = "em"
		case MarkUnderline:
			tag = "u"
		case MarkStrike:
			tag = "s"
		case MarkCode:
			tag = "code"
		case MarkLink:
			tag = "a"
			if href, ok := m.Attrs["href"].(string); ok {
				attrs = ` href="` + html.EscapeString(href) + `"`
			}
		default:
			continue
		}
		open = append(open, "<"+tag+attrs+">")
		closing = append(closing, "</"+tag+">")
	}

	for _, o := range open {
		b.WriteString(o)
	}
	b.WriteString(html.EscapeString(n.Text))
	for i := len(closing) - 1; i >= 0; i-- {
		b.WriteString(closing[i])
	}
}

// PlainTextRaw concatenates text leaves without separators. Used where the
// leaves are fragments of one string, as in code blocks.
func PlainTextRaw(n *Node) string {
	if n == nil {
		return ""
	}
	if n.Kind == KindText {
		return n.Text
	}
	var b strings.Builder
	for _, c := range n.Children {
		b.WriteString(PlainTextRaw(c))
	}
	return b.String()
}
