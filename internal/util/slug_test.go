package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		// Basic
		{"punctuation", "Hello, World!", "hello-world"},
		{"title", "My First Duck", "my-first-duck"},
		{"already a slug", "my-first-duck", "my-first-duck"},
		{"numbers kept", "Top 10 Ducks", "top-10-ducks"},
		{"dots collapse", "Ducks 2.0", "ducks-2-0"},

		// Hyphen handling
		{"only hyphens", "---", ""},
		{"leading and trailing", "--duck--", "duck"},
		{"mixed runs", "a - - b", "a-b"},

		// Edge cases
		{"empty", "", ""},
		{"only symbols", "!@#$%", ""},
		{"non ascii dropped", "Café Ducks", "caf-ducks"},
		{"emoji dropped", "🦆 Quack!", "quack"},
		{"tabs and newlines", "rubber\t\nduck", "rubber-duck"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.input))
		})
	}
}

func TestSlugify_Idempotent(t *testing.T) {
	inputs := []string{
		"Hello, World!",
		"The Chaotic Duck Revolution",
		"Debugging with Rubber Ducks: A Complete Guide",
		"  --weird__Input!!  ",
		"---",
		"ÄÖÜ 123",
		"",
	}

	for _, in := range inputs {
		once := Slugify(in)
		assert.Equal(t, once, Slugify(once), "slugify must be idempotent for %q", in)
	}
}

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "Ducks", "ducks"},
		{"trim", "  satire ", "satire"},
		{"inner whitespace", "rubber \t ducks", "rubber ducks"},
		{"composed accents", "Café", "café"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeTag(tt.input))
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{"Ducks", "satire", "ducks ", "", "Revolution"})
	assert.Equal(t, []string{"ducks", "satire", "revolution"}, got)

	assert.Empty(t, NormalizeTags(nil))
}
