package richtext

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const duckDoc = `{
  "type": "doc",
  "content": [
    {"type": "heading", "attrs": {"level": 2}, "content": [{"type": "text", "text": "Rise of the Ducks"}]},
    {"type": "paragraph", "content": [
      {"type": "text", "text": "Once docile creatures,"},
      {"type": "text", "text": "ducks now rise", "marks": [{"type": "bold"}]}
    ]},
    {"type": "blockquote", "content": [
      {"type": "paragraph", "content": [{"type": "text", "text": "Never trust a duck with a knife."}]}
    ]},
    {"type": "codeBlock", "attrs": {"language": "javascript"}, "content": [{"type": "text", "text": "console.log(\"Quack!\");"}]},
    {"type": "horizontalRule"}
  ]
}`

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("quack ", n))
}

func TestParse_DocumentShape(t *testing.T) {
	doc, err := Parse([]byte(duckDoc))
	require.NoError(t, err)

	assert.Equal(t, KindElement, doc.Kind)
	assert.Equal(t, TypeDoc, doc.Type)
	require.Len(t, doc.Children, 5)

	heading := doc.Children[0]
	assert.Equal(t, TypeHeading, heading.Type)
	assert.Equal(t, 2, heading.attrInt("level", 0))
	require.Len(t, heading.Children, 1)
	assert.Equal(t, KindText, heading.Children[0].Kind)
	assert.Equal(t, "Rise of the Ducks", heading.Children[0].Text)

	bold := doc.Children[1].Children[1]
	require.Len(t, bold.Marks, 1)
	assert.Equal(t, MarkBold, bold.Marks[0].Type)
}

func TestParse_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"missing type", `{"content": []}`},
		{"text with content", `{"type": "text", "text": "a", "content": [{"type": "text", "text": "b"}]}`},
		{"element with text", `{"type": "paragraph", "text": "loose"}`},
		{"null child", `{"type": "doc", "content": [null]}`},
		{"not an object", `"just a string"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.json))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestNode_JSONRoundTrip(t *testing.T) {
	doc, err := Parse([]byte(duckDoc))
	require.NoError(t, err)

	encoded, err := json.Marshal(doc)
	require.NoError(t, err)

	again, err := Parse(encoded)
	require.NoError(t, err)
	assert.Equal(t, doc, again)
}

func TestPlainText_JoinsLeavesWithSpaces(t *testing.T) {
	doc := Doc(
		Element(TypeHeading, map[string]any{"level": float64(1)}, Text("Title")),
		Element(TypeParagraph, nil, Text("first"), Text("second")),
		Element(TypeHorizontalRule, nil),
	)

	assert.Equal(t, "Title first second ", PlainText(doc))
	assert.Equal(t, 3, WordCount(doc))
	assert.Equal(t, "", PlainText(nil))
}

func TestEstimateReadTime(t *testing.T) {
	tests := []struct {
		name string
		doc  *Node
		want int
	}{
		{"empty document", Doc(), 1},
		{"nil document", nil, 1},
		{"one word", Doc(Paragraph("quack")), 1},
		{"exactly 200 words", Doc(Paragraph(words(200))), 1},
		{"201 words", Doc(Paragraph(words(201))), 2},
		{"400 words", Doc(Paragraph(words(400))), 2},
		{"401 words", Doc(Paragraph(words(401))), 3},
		{"split across blocks", Doc(Paragraph(words(150)), Paragraph(words(51))), 2},
		{"capped", Doc(Paragraph(words(200*MaxReadTime + 1))), MaxReadTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateReadTime(tt.doc))
		})
	}
}

func TestExcerpt(t *testing.T) {
	doc := Doc(Paragraph("Why talking to a rubber duck is more effective than talking to your senior developer."))

	assert.Equal(t, "Why talking to a rubber duck…", Excerpt(doc, 30))
	full := Excerpt(doc, 500)
	assert.Equal(t, PlainText(doc), full)
}

func TestRenderHTML(t *testing.T) {
	doc, err := Parse([]byte(duckDoc))
	require.NoError(t, err)

	out := RenderHTML(doc)

	assert.Contains(t, out, "<h2>Rise of the Ducks</h2>")
	assert.Contains(t, out, "<strong>ducks now rise</strong>")
	assert.Contains(t, out, "<blockquote><p>Never trust a duck with a knife.</p></blockquote>")
	assert.Contains(t, out, `<pre><code class="language-javascript">`)
	assert.Contains(t, out, "Quack!")
	assert.Contains(t, out, "<hr")
}

func TestRenderHTML_Sanitizes(t *testing.T) {
	doc := Doc(
		Element(TypeParagraph, nil,
			Text("<script>alert(1)</script>"),
			Text("click", Mark{Type: MarkLink, Attrs: map[string]any{"href": "javascript:alert(1)"}}),
		),
		Element(TypeImage, map[string]any{"src": "javascript:alert(2)", "alt": "duck"}),
	)

	out := RenderHTML(doc)

	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "javascript:")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestToMarkdown(t *testing.T) {
	doc := Doc(
		Element(TypeHeading, map[string]any{"level": float64(2)}, Text("Duck Debugging")),
		Element(TypeParagraph, nil, Text("Explain it to the "), Text("duck", Mark{Type: MarkItalic})),
		Element(TypeBulletList, nil,
			Element(TypeListItem, nil, Paragraph("rubber")),
			Element(TypeListItem, nil, Paragraph("mallard")),
		),
	)

	md, err := ToMarkdown(doc)
	require.NoError(t, err)

	assert.Contains(t, md, "## Duck Debugging")
	assert.Contains(t, md, "*duck*")
	assert.Contains(t, md, "rubber")
	assert.Contains(t, md, "mallard")

	empty, err := ToMarkdown(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFromMarkdown(t *testing.T) {
	src := "## Rise of the Ducks\n\nDucks are **bold** and *sly*.\n\n- one\n- two\n\n```go\nfmt.Println(\"quack\")\n```\n"

	doc := FromMarkdown(src)

	require.Equal(t, TypeDoc, doc.Type)
	require.Len(t, doc.Children, 4)

	heading := doc.Children[0]
	assert.Equal(t, TypeHeading, heading.Type)
	assert.Equal(t, 2, heading.attrInt("level", 0))
	assert.Equal(t, "Rise of the Ducks", PlainTextRaw(heading))

	para := doc.Children[1]
	assert.Equal(t, TypeParagraph, para.Type)
	var boldSeen bool
	for _, c := range para.Children {
		if c.Text == "bold" {
			require.Len(t, c.Marks, 1)
			assert.Equal(t, MarkBold, c.Marks[0].Type)
			boldSeen = true
		}
	}
	assert.True(t, boldSeen)

	list := doc.Children[2]
	assert.Equal(t, TypeBulletList, list.Type)
	assert.Len(t, list.Children, 2)

	code := doc.Children[3]
	assert.Equal(t, TypeCodeBlock, code.Type)
	assert.Equal(t, "go", code.attrString("language"))
	assert.Equal(t, `fmt.Println("quack")`, PlainTextRaw(code))
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, (*Node)(nil).IsEmpty())
	assert.True(t, Doc(Paragraph("")).IsEmpty())
	assert.False(t, Doc(Paragraph("quack")).IsEmpty())
}
