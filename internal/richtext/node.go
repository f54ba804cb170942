// Package richtext models post bodies as a tree of nodes in the editor's
// document format and derives plain text, reading time, HTML and markdown from it.
package richtext

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Kind tags the variant a Node holds.
type Kind uint8

const (
	// KindElement is a node with a type, attributes and children.
	KindElement Kind = iota
	// KindText is a leaf carrying text and inline marks.
	KindText
)

// TypeText is the wire type of text leaves.
const TypeText = "text"

// Element types the renderers understand. Unknown element types are kept
// and rendered as their children.
const (
	TypeDoc            = "doc"
	TypeParagraph      = "paragraph"
	TypeHeading        = "heading"
	TypeBulletList     = "bulletList"
	TypeOrderedList    = "orderedList"
	TypeListItem       = "listItem"
	TypeBlockquote     = "blockquote"
	TypeCodeBlock      = "codeBlock"
	TypeHorizontalRule = "horizontalRule"
	TypeHardBreak      = "hardBreak"
	TypeImage          = "image"
)

// Mark types applied to text leaves.
const (
	MarkBold      = "bold"
	MarkItalic    = "italic"
	MarkUnderline = "underline"
	MarkStrike    = "strike"
	MarkCode      = "code"
	MarkLink      = "link"
)

// Mark is an inline decoration on a text leaf.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Node is one node of a document tree. Exactly one variant is populated:
// text leaves use Text and Marks, elements use Type, Attrs and Children.
type Node struct {
	Kind     Kind
	Type     string
	Text     string
	Marks    []Mark
	Attrs    map[string]any
	Children []*Node
}

// Text returns a text leaf.
func Text(s string, marks ...Mark) *Node {
	return &Node{Kind: KindText, Type: TypeText, Text: s, Marks: marks}
}

// Element returns an element node.
func Element(typ string, attrs map[string]any, children ...*Node) *Node {
	return &Node{Kind: KindElement, Type: typ, Attrs: attrs, Children: children}
}

// Doc returns a document root.
func Doc(children ...*Node) *Node {
	return Element(TypeDoc, nil, children...)
}

// Paragraph returns a paragraph holding a single unmarked text leaf.
func Paragraph(s string) *Node {
	if s == "" {
		return Element(TypeParagraph, nil)
	}
	return Element(TypeParagraph, nil, Text(s))
}

// IsEmpty reports whether the tree carries no text at all.
func (n *Node) IsEmpty() bool {
	return n == nil || PlainText(n) == ""
}

// wireNode is the JSON shape: {"type":"...","text":"...","attrs":{},"marks":[],"content":[]}.
type wireNode struct {
	Type    string          `json:"type"`
	Text    *string         `json:"text,omitempty"`
	Attrs   map[string]any  `json:"attrs,omitempty"`
	Marks   []Mark          `json:"marks,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

// MarshalJSON encodes the node in the editor's document format.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}
	if n.Kind == KindText {
		text := n.Text
		return json.Marshal(wireNode{Type: TypeText, Text: &text, Marks: n.Marks})
	}

	w := wireNode{Type: n.Type, Attrs: n.Attrs}
	if len(n.Children) > 0 {
		content, err := json.Marshal(n.Children)
		if err != nil {
			return nil, err
		}
		w.Content = content
	}
	return json.Marshal(w)
}

// ErrMalformed is returned for JSON that is not a document tree.
var ErrMalformed = errors.New("malformed rich text")

// UnmarshalJSON decodes the editor's document format. Text leaves must not
// have children and elements must not carry text.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.Type == "" {
		return fmt.Errorf("%w: node without type", ErrMalformed)
	}

	hasContent := len(w.Content) > 0 && !bytes.Equal(w.Content, []byte("null"))

	if w.Type == TypeText {
		if hasContent {
			return fmt.Errorf("%w: text node with content", ErrMalformed)
		}
		var text string
		if w.Text != nil {
			text = *w.Text
		}
		*n = Node{Kind: KindText, Type: TypeText, Text: text, Marks: w.Marks}
		return nil
	}

	if w.Text != nil {
		return fmt.Errorf("%w: %s node with text", ErrMalformed, w.Type)
	}

	var children []*Node
	if hasContent {
		if err := json.Unmarshal(w.Content, &children); err != nil {
			return err
		}
		for i, c := range children {
			if c == nil {
				return fmt.Errorf("%w: null child %d in %s", ErrMalformed, i, w.Type)
			}
		}
	}
	*n = Node{Kind: KindElement, Type: w.Type, Attrs: w.Attrs, Children: children}
	return nil
}

// Parse decodes a JSON document.
func Parse(data []byte) (*Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// attrString reads a string attribute, tolerating absent keys.
func (n *Node) attrString(key string) string {
	if v, ok := n.Attrs[key].(string); ok {
		return v
	}
	return ""
}

// attrInt reads a numeric attribute. JSON numbers decode as float64.
func (n *Node) attrInt(key string, fallback int) int {
	switch v := n.Attrs[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
