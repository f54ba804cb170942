//go:build unix

package session

import (
	"context"
	"os"
	"os/signal"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestWatchSignals(t *testing.T) {
	// Keep SIGUSR1 from terminating the test binary before WatchSignals
	// registers.
	guard := make(chan os.Signal, 1)
	signal.Notify(guard, unix.SIGUSR1)
	defer signal.Stop(guard)

	r := newRecordingRefresher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go WatchSignals(ctx, r, unix.SIGUSR1)

	require.Eventually(t, func() bool {
		require.NoError(t, unix.Kill(os.Getpid(), unix.SIGUSR1))
		select {
		case reason := <-r.reasons:
			return reason == ReasonFocus
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
