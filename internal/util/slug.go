// Package util provides small text helpers shared by the content layer.
package util

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// Matches any run of characters outside the slug alphabet.
	nonSlugRunRe = regexp.MustCompile(`[^a-z0-9]+`)
	// Matches runs of whitespace inside a tag.
	tagSpaceRe = regexp.MustCompile(`\s+`)
)

// Slugify derives a URL slug from a post title.
//
// The title is lowercased, every run of characters outside [a-z0-9] collapses
// to a single hyphen, and leading/trailing hyphens are trimmed:
//
//	"Hello, World!"          → "hello-world"
//	"My First Duck"          → "my-first-duck"
//	"  Ducks & Knives 2.0 "  → "ducks-knives-2-0"
//	"---"                    → ""
//
// An empty result is not a usable slug; callers reject it.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = nonSlugRunRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NormalizeTag canonicalizes a tag for storage and exact-match filtering.
// Unlike slugs, tags keep non-ASCII letters; they are NFC-normalized so that
// visually identical tags compare equal.
//
//	"  Rubber  Ducks " → "rubber ducks"
//	"Café" (decomposed) → "café" (composed)
func NormalizeTag(tag string) string {
	s := norm.NFC.String(strings.TrimSpace(tag))
	s = tagSpaceRe.ReplaceAllString(s, " ")
	return strings.ToLower(s)
}

// NormalizeTags normalizes every tag, dropping empties and duplicates while
// preserving the first-seen order for display.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		n := NormalizeTag(t)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
