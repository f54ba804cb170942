package session

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRefresher struct {
	reasons chan string
}

func newRecordingRefresher() *recordingRefresher {
	return &recordingRefresher{reasons: make(chan string, 16)}
}

func (r *recordingRefresher) Trigger(reason string) {
	r.reasons <- reason
}

func (r *recordingRefresher) expect(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-r.reasons:
		assert.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("no %q trigger", want)
	}
}

func (r *recordingRefresher) expectNone(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case got := <-r.reasons:
		t.Fatalf("unexpected trigger %q", got)
	case <-time.After(wait):
	}
}

func startTokenWatcher(t *testing.T, path string) *recordingRefresher {
	t.Helper()

	r := newRecordingRefresher()
	w, err := NewTokenWatcher(path, r, 50*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r
}

func TestTokenWatcher_TriggersOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quack", "session.json")
	r := startTokenWatcher(t, path)

	require.NoError(t, os.WriteFile(path, []byte(`{"token":"a"}`), 0o600))
	r.expect(t, ReasonTokenFile)

	// Replace by rename, as TokenFile.Save does.
	tmp := filepath.Join(filepath.Dir(path), ".session-tmp")
	require.NoError(t, os.WriteFile(tmp, []byte(`{"token":"b"}`), 0o600))
	require.NoError(t, os.Rename(tmp, path))
	r.expect(t, ReasonTokenFile)

	require.NoError(t, os.Remove(path))
	r.expect(t, ReasonTokenFile)
}

func TestTokenWatcher_MergesBursts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	r := startTokenWatcher(t, path)

	f, err := os.Create(path)
	require.NoError(t, err)
	for range 5 {
		_, err := f.WriteString("quack")
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	r.expect(t, ReasonTokenFile)
	r.expectNone(t, 200*time.Millisecond)
}

func TestTokenWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	r := startTokenWatcher(t, filepath.Join(dir, "session.json"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "cache.db"), []byte("x"), 0o600))
	r.expectNone(t, 200*time.Millisecond)
}
