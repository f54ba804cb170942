//go:build unix

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// focusSignals are the signals a terminal integration sends when the quack
// window regains focus.
func focusSignals() []os.Signal {
	return []os.Signal{unix.SIGUSR1}
}
