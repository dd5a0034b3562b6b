package process

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// ErrNoChildren is returned by a Waiter when no child processes remain.
var ErrNoChildren = errors.New("no child processes")

// Waiter blocks until the next child terminates.
type Waiter interface {
	Wait() (Exit, error)
}

// WaitAny reaps any child of the current process with wait4(-1).
type WaitAny struct{}

// Wait blocks until some child terminates. Interrupted waits are retried;
// ErrNoChildren is returned once nothing is left to wait for.
func (WaitAny) Wait() (Exit, error) {
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, 0, nil)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.ECHILD):
			return Exit{}, ErrNoChildren
		case err != nil:
			return Exit{}, fmt.Errorf("wait4: %w", err)
		}
		if ws.Stopped() || ws.Continued() {
			continue
		}
		return ExitFromStatus(pid, ws), nil
	}
}

// ScriptedWaiter is a test double that reports the exits produced by Next
// until it returns ok == false.
type ScriptedWaiter struct {
	Next func() (Exit, bool)
}

// Wait returns the next scripted exit or ErrNoChildren.
func (w *ScriptedWaiter) Wait() (Exit, error) {
	if w.Next == nil {
		return Exit{}, ErrNoChildren
	}
	e, ok := w.Next()
	if !ok {
		return Exit{}, ErrNoChildren
	}
	return e, nil
}
