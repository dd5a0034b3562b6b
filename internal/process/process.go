// Package process models supervised child processes: the per-slot record,
// the restart policy, and the spawn and reap primitives.
package process

import (
	"fmt"

	"github.com/elcapo/elcapo/internal/config"
)

// NoRetry is the attempt counter of a process that is never restarted.
const NoRetry = -1

// Process is the record for one configured process. Its identity is the
// slot index; the pid changes on every restart. A Process is owned by the
// supervisor loop and is not safe for concurrent use.
type Process struct {
	index    int
	spec     config.ProcessSpec
	pid      int
	attempts int
	state    State
}

// New creates a record in the STARTING state.
func New(index int, spec config.ProcessSpec) *Process {
	attempts := 0
	if !spec.Restartable {
		attempts = NoRetry
	}
	return &Process{
		index:    index,
		spec:     spec,
		attempts: attempts,
		state:    Starting,
	}
}

// Index returns the slot index of the record.
func (p *Process) Index() int { return p.index }

// Spec returns the process spec.
func (p *Process) Spec() config.ProcessSpec { return p.spec }

// Pid returns the current pid, or 0 when no child is alive.
func (p *Process) Pid() int { return p.pid }

// Attempts returns the number of restarts performed, or NoRetry.
func (p *Process) Attempts() int { return p.attempts }

// State returns the current state.
func (p *Process) State() State { return p.state }

// Restartable reports whether the record may ever be restarted.
func (p *Process) Restartable() bool { return p.attempts != NoRetry }

// MarkRunning records the pid of a freshly spawned child.
func (p *Process) MarkRunning(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("process %s: invalid pid %d", p.spec.Path, pid)
	}
	if err := p.transition(Running); err != nil {
		return err
	}
	p.pid = pid
	return nil
}

// MarkRetry consumes one restart attempt and moves the record back to
// STARTING, ready to be respawned.
func (p *Process) MarkRetry() error {
	if !p.Restartable() {
		return fmt.Errorf("process %s: not restartable", p.spec.Path)
	}
	if err := p.transition(Starting); err != nil {
		return err
	}
	p.attempts++
	p.pid = 0
	return nil
}

// MarkTerminated makes the record permanently TERMINATED.
func (p *Process) MarkTerminated() error {
	if err := p.transition(Terminated); err != nil {
		return err
	}
	p.pid = 0
	return nil
}

func (p *Process) transition(target State) error {
	if !canTransition(p.state, target) {
		return fmt.Errorf("process %s: cannot transition from %s to %s", p.spec.Path, p.state, target)
	}
	p.state = target
	return nil
}
