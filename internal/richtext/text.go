package richtext

import (
	"strings"
	"unicode/utf8"
)

const (
	// WordsPerMinute is the reading speed used for read time estimates.
	WordsPerMinute = 200
	// MaxReadTime is the largest read time the store accepts.
	MaxReadTime = 999
)

// PlainText returns the text of every leaf under n. Children are joined with
// a single space so that adjacent blocks never glue words together.
func PlainText(n *Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case KindText:
		return n.Text
	default:
		parts := make([]string, 0, len(n.Children))
		for _, c := range n.Children {
			parts = append(parts, PlainText(c))
		}
		return strings.Join(parts, " ")
	}
}

// WordCount counts whitespace-separated tokens of the plain text.
func WordCount(n *Node) int {
	return len(strings.Fields(PlainText(n)))
}

// EstimateReadTime returns whole minutes at WordsPerMinute, rounded up,
// never below 1 and never above MaxReadTime.
func EstimateReadTime(n *Node) int {
	words := WordCount(n)
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		return 1
	}
	if minutes > MaxReadTime {
		return MaxReadTime
	}
	return minutes
}

// Excerpt returns at most max runes of normalized plain text, cut on a word
// boundary when possible and suffixed with an ellipsis when shortened.
func Excerpt(n *Node, max int) string {
	text := strings.Join(strings.Fields(PlainText(n)), " ")
	if utf8.RuneCountInString(text) <= max {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:max])
	if i := strings.LastIndexByte(cut, ' '); i > max/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " .,;:") + "…"
}
