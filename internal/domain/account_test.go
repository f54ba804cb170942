package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_IsExpired(t *testing.T) {
	now := time.Now()
	s := &Session{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, s.IsExpired(now))
	assert.True(t, s.IsExpired(now.Add(time.Minute)))
	assert.True(t, s.IsExpired(now.Add(time.Hour)))
}

func TestPost_HasTag(t *testing.T) {
	p := &Post{Tags: []string{"satire", "ducks"}}

	assert.True(t, p.HasTag("ducks"))
	assert.False(t, p.HasTag("Ducks"))
	assert.False(t, (&Post{}).HasTag("ducks"))
}

func TestPostPatch_IsEmpty(t *testing.T) {
	assert.True(t, PostPatch{}.IsEmpty())

	published := true
	assert.False(t, PostPatch{IsPublished: &published}.IsEmpty())
}
