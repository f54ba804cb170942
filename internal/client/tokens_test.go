package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	f := NewTokenFile(path)

	stored, err := f.Load()
	require.NoError(t, err)
	assert.Nil(t, stored, "missing file means no session")

	expires := time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, f.Save(&StoredSession{Token: "tok", UserID: "usr-1", SessionID: "ses-1", ExpiresAt: expires}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	stored, err = f.Load()
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "tok", stored.Token)
	assert.Equal(t, "ses-1", stored.SessionID)
	assert.True(t, expires.Equal(stored.ExpiresAt))

	require.NoError(t, f.Clear())
	require.NoError(t, f.Clear(), "clearing twice is fine")

	stored, err = f.Load()
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestTokenFile_Garbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewTokenFile(path).Load()
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"token":""}`), 0o600))
	stored, err := NewTokenFile(path).Load()
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestTokenFile_NoPath(t *testing.T) {
	f := NewTokenFile("")
	require.NoError(t, f.Save(&StoredSession{Token: "tok"}))

	stored, err := f.Load()
	require.NoError(t, err)
	assert.Nil(t, stored)
	assert.NoError(t, f.Clear())
}
