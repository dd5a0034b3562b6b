package process

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// SpawnFailureCode is the exit code reported for a child whose image could
// not be started.
const SpawnFailureCode = 127

// Exit describes how a child terminated.
type Exit struct {
	Pid    int
	Exited bool        // terminated on its own via exit
	Code   int         // exit status, valid when Exited
	Signal unix.Signal // terminating signal, valid when !Exited
}

// ExitFromStatus converts a wait status into an Exit.
func ExitFromStatus(pid int, ws unix.WaitStatus) Exit {
	if ws.Signaled() {
		return Exit{Pid: pid, Signal: ws.Signal()}
	}
	return Exit{Pid: pid, Exited: true, Code: ws.ExitStatus()}
}

// Failed reports whether the exit counts as a failure: a non-zero status or
// death by signal.
func (e Exit) Failed() bool {
	return !e.Exited || e.Code != 0
}

func (e Exit) String() string {
	if e.Exited {
		return fmt.Sprintf("exit:true code:%d", e.Code)
	}
	return fmt.Sprintf("exit:false signal:%s", unix.SignalName(e.Signal))
}

// ShouldRestart applies the restart policy to a record that just exited.
// Only restartable records that failed and still have budget are restarted;
// a clean exit is never restarted.
func ShouldRestart(p *Process, e Exit, budget int) bool {
	if !p.Restartable() {
		return false
	}
	if !e.Failed() {
		return false
	}
	return p.Attempts() < budget
}
