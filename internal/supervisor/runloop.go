package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync/atomic"
	"syscall"

	"github.com/elcapo/elcapo/internal/config"
	"github.com/elcapo/elcapo/internal/events"
	"github.com/elcapo/elcapo/internal/process"
	"golang.org/x/sys/unix"
)

// Supervisor is the main run loop. All process records are owned by the
// goroutine running Monitor; only the live count is shared.
type Supervisor struct {
	procs   []*process.Process
	byPid   map[int]*process.Process
	retries int
	live    atomic.Int64

	spawner process.ProcessSpawner
	waiter  process.Waiter
	kill    func(pid int, sig unix.Signal) error
	bus     *events.Bus
	logger  *slog.Logger
	stdout  io.Writer
	stderr  io.Writer
	signals <-chan os.Signal

	pending  []*process.Process // spawn failures not yet settled
	shutting bool
}

// SupervisorConfig configures the supervisor.
type SupervisorConfig struct {
	Specs   []config.ProcessSpec
	Retries int // restart budget per restartable process

	Spawner process.ProcessSpawner // nil uses process.ExecSpawner
	Waiter  process.Waiter         // nil uses process.WaitAny
	Kill    func(pid int, sig unix.Signal) error
	Bus     *events.Bus // nil creates a private bus
	Logger  *slog.Logger

	Console io.Writer // status lines, nil means os.Stdout
	Stdout  io.Writer // children's stdout, nil means os.Stdout
	Stderr  io.Writer // children's stderr, nil means os.Stderr

	Signals <-chan os.Signal // nil installs a SignalQueue in Run
}

type reapResult struct {
	exit process.Exit
	err  error
}

// New creates a supervisor with one STARTING record per spec.
func New(cfg SupervisorConfig) *Supervisor {
	s := &Supervisor{
		procs:   make([]*process.Process, len(cfg.Specs)),
		byPid:   make(map[int]*process.Process, len(cfg.Specs)),
		retries: cfg.Retries,
		spawner: cfg.Spawner,
		waiter:  cfg.Waiter,
		kill:    cfg.Kill,
		bus:     cfg.Bus,
		logger:  cfg.Logger,
		stdout:  cfg.Stdout,
		stderr:  cfg.Stderr,
		signals: cfg.Signals,
	}
	for i, spec := range cfg.Specs {
		s.procs[i] = process.New(i, spec)
	}

	if s.spawner == nil {
		s.spawner = &process.ExecSpawner{}
	}
	if s.waiter == nil {
		s.waiter = process.WaitAny{}
	}
	if s.kill == nil {
		s.kill = killGroup
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.bus == nil {
		s.bus = events.NewBus(s.logger)
	}
	if s.stdout == nil {
		s.stdout = os.Stdout
	}
	if s.stderr == nil {
		s.stderr = os.Stderr
	}

	console := cfg.Console
	if console == nil {
		console = os.Stdout
	}
	NewStatusPrinter(console).Subscribe(s.bus)

	return s
}

// Bus returns the event bus.
func (s *Supervisor) Bus() *events.Bus { return s.bus }

// Processes returns the process records in config order.
func (s *Supervisor) Processes() []*process.Process { return s.procs }

// LiveCount returns the number of processes in the RUNNING state. It is
// safe to call from any goroutine.
func (s *Supervisor) LiveCount() int64 { return s.live.Load() }

// Run launches every process and blocks until none remain.
func (s *Supervisor) Run(ctx context.Context) error {
	if s.signals == nil {
		sq := NewSignalQueue(s.logger)
		defer sq.Stop()
		s.signals = sq.C
	}

	s.LaunchAll()

	s.bus.Publish(events.Event{
		Type: events.SupervisorRunning,
		Data: map[string]string{"pid": strconv.Itoa(os.Getpid())},
	})
	notifySystemd(sdReady, s.logger)
	s.logger.Info("supervisor running", "pid", os.Getpid(), "processes", len(s.procs), "retries", s.retries)

	err := s.Monitor(ctx)

	notifySystemd(sdStopping, s.logger)
	s.bus.Publish(events.Event{
		Type: events.SupervisorStopping,
		Data: map[string]string{},
	})
	s.logger.Info("all processes finished")
	return err
}

// LaunchAll spawns every process in config order.
func (s *Supervisor) LaunchAll() {
	for _, p := range s.procs {
		s.spawn(p, false)
	}
}

// Monitor reaps children and applies the restart policy until the waiter
// reports that no children remain. A separate goroutine performs one
// blocking wait per request, and a request is only issued once every
// pending restart has been spawned, so an empty wait always means the run
// is over. Signals and ctx cancellation are handled between waits.
func (s *Supervisor) Monitor(ctx context.Context) error {
	requests := make(chan struct{})
	results := make(chan reapResult, 1)
	defer close(requests)
	go s.reapLoop(requests, results)

	done := ctx.Done()
	waiting := false
	for {
		for len(s.pending) > 0 {
			p := s.pending[0]
			s.pending = s.pending[1:]
			s.settle(p, process.Exit{Exited: true, Code: process.SpawnFailureCode})
		}

		if !waiting {
			requests <- struct{}{}
			waiting = true
		}

		select {
		case r := <-results:
			waiting = false
			if errors.Is(r.err, process.ErrNoChildren) {
				if n := s.live.Load(); n != 0 {
					s.logger.Warn("no children left but live count is not zero", "live", n)
				}
				return nil
			}
			if r.err != nil {
				return fmt.Errorf("reap children: %w", r.err)
			}
			s.handleExit(r.exit)

		case sig := <-s.signals:
			s.handleSignal(sig)

		case <-done:
			done = nil
			s.logger.Info("context canceled, stopping children")
			s.terminateAll()
		}
	}
}

func (s *Supervisor) reapLoop(requests <-chan struct{}, results chan<- reapResult) {
	for range requests {
		e, err := s.waiter.Wait()
		results <- reapResult{exit: e, err: err}
	}
}

// handleSignal processes a signal delivered to the supervisor.
func (s *Supervisor) handleSignal(sig os.Signal) {
	s.logger.Debug("received signal", "signal", sig.String())

	switch sig {
	case syscall.SIGHUP:
		s.reportLiveCount()
	case syscall.SIGTERM, syscall.SIGINT:
		s.terminateAll()
	default:
		s.logger.Warn("unhandled signal", "signal", sig.String())
	}
}

// reportLiveCount publishes the live count. It reads nothing else.
func (s *Supervisor) reportLiveCount() {
	n := s.live.Load()
	s.bus.Publish(events.Event{
		Type: events.SupervisorLiveCount,
		Data: map[string]string{"count": strconv.FormatInt(n, 10)},
	})
}

// terminateAll disables restarts and forwards SIGTERM to every live child.
// A second request escalates to SIGKILL.
func (s *Supervisor) terminateAll() {
	sig := unix.SIGTERM
	if s.shutting {
		sig = unix.SIGKILL
	}
	s.shutting = true

	s.logger.Info("forwarding termination", "signal", unix.SignalName(sig), "live", s.live.Load())
	for _, p := range s.procs {
		if p.State() != process.Running {
			continue
		}
		if err := s.kill(p.Pid(), sig); err != nil {
			s.logger.Warn("signal failed", "pid", p.Pid(), "path", p.Spec().Path, "error", err)
		}
	}
}

// handleExit reconciles one reaped child with its record.
func (s *Supervisor) handleExit(e process.Exit) {
	p, known := s.byPid[e.Pid]
	path := ""
	if known {
		delete(s.byPid, e.Pid)
		s.live.Add(-1)
		path = p.Spec().Path
	}

	s.bus.Publish(events.Event{
		Type: events.ProcessFinished,
		Data: exitData(path, e),
	})

	if !known {
		s.logger.Warn("reaped unknown child", "pid", e.Pid, "status", e.String())
		return
	}
	s.logger.Debug("reaped child", "pid", e.Pid, "path", path, "status", e.String())

	s.settle(p, e)
}

// settle applies the restart policy to a record whose child is gone.
func (s *Supervisor) settle(p *process.Process, e process.Exit) {
	if !s.shutting && process.ShouldRestart(p, e, s.retries) {
		if err := p.MarkRetry(); err != nil {
			s.logger.Error("state transition failed", "path", p.Spec().Path, "error", err)
			return
		}
		s.spawn(p, true)
		return
	}

	exhausted := p.Restartable() && e.Failed() && !s.shutting
	if err := p.MarkTerminated(); err != nil {
		s.logger.Error("state transition failed", "path", p.Spec().Path, "error", err)
		return
	}
	if exhausted {
		s.logger.Warn("restart budget exhausted", "path", p.Spec().Path, "attempts", p.Attempts())
		s.bus.Publish(events.Event{
			Type: events.ProcessExhausted,
			Data: map[string]string{
				"path":    p.Spec().Path,
				"attempt": strconv.Itoa(p.Attempts()),
			},
		})
	}
}

// spawn starts the child for p. A failed spawn is queued and later settled
// like a child that exited with SpawnFailureCode.
func (s *Supervisor) spawn(p *process.Process, restart bool) {
	spec := p.Spec()
	pid, err := s.spawner.Spawn(process.SpawnConfig{
		Path:   spec.Path,
		Args:   spec.Args,
		Stdout: s.stdout,
		Stderr: s.stderr,
	})
	if err != nil {
		s.logger.Error("spawn failed", "path", spec.Path, "error", err)
		s.bus.Publish(events.Event{
			Type: events.ProcessSpawnFailed,
			Data: map[string]string{
				"path":  spec.Path,
				"error": err.Error(),
			},
		})
		s.pending = append(s.pending, p)
		return
	}

	if other, dup := s.byPid[pid]; dup {
		s.logger.Error("pid reused by a live record", "pid", pid, "path", other.Spec().Path)
	}
	if err := p.MarkRunning(pid); err != nil {
		s.logger.Error("state transition failed", "path", spec.Path, "error", err)
		return
	}
	s.byPid[pid] = p
	s.live.Add(1)

	if restart {
		s.bus.Publish(events.Event{
			Type: events.ProcessRestarted,
			Data: map[string]string{
				"path":    spec.Path,
				"pid":     strconv.Itoa(pid),
				"attempt": strconv.Itoa(p.Attempts()),
			},
		})
		return
	}
	s.bus.Publish(events.Event{
		Type: events.ProcessStarted,
		Data: map[string]string{
			"path": spec.Path,
			"pid":  strconv.Itoa(pid),
		},
	})
}

func exitData(path string, e process.Exit) map[string]string {
	data := map[string]string{
		"path":   path,
		"pid":    strconv.Itoa(e.Pid),
		"exited": strconv.FormatBool(e.Exited),
		"status": e.String(),
	}
	if e.Exited {
		data["code"] = strconv.Itoa(e.Code)
	} else {
		data["signal"] = unix.SignalName(e.Signal)
	}
	return data
}

// killGroup signals the child's process group, falling back to the child
// alone when the group is already gone.
func killGroup(pid int, sig unix.Signal) error {
	if err := unix.Kill(-pid, sig); err == nil {
		return nil
	}
	return unix.Kill(pid, sig)
}
