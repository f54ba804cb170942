// Package id generates the identifiers used for stored records and one-time secrets.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Record prefixes. The prefix makes an identifier self-describing in logs and URLs.
const (
	PrefixPost    = "post"
	PrefixComment = "cmt"
	PrefixUser    = "user"
	PrefixSession = "sess"
	PrefixTeam    = "team"
)

// secretAlphabet avoids characters that are awkward in query strings.
const secretAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// secretLength gives roughly 190 bits of entropy.
const secretLength = 32

// Generate returns a prefixed identifier, e.g. "post-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics when the system has no entropy.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// Secret returns an alphanumeric one-time secret suitable for a URL query parameter.
func Secret() (string, error) {
	s, err := gonanoid.Generate(secretAlphabet, secretLength)
	if err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return s, nil
}
