package process

import (
	"io"
	"os/exec"
	"syscall"
)

// SpawnConfig holds the parameters needed to spawn a child process.
type SpawnConfig struct {
	Path        string               // executable path, not resolved against $PATH
	Args        []string             // full argument vector including argv[0]
	Env         []string             // environment (KEY=VALUE), nil inherits
	Stdout      io.Writer            // stdout destination (nil = discard)
	Stderr      io.Writer            // stderr destination (nil = discard)
	Stdin       io.Reader            // stdin source (nil = /dev/null)
	SysProcAttr *syscall.SysProcAttr // additional proc attributes
}

// ProcessSpawner creates child processes and returns their pid. The caller
// is responsible for reaping them. Implementations include ExecSpawner
// (real) and MockSpawner (testing).
type ProcessSpawner interface {
	Spawn(cfg SpawnConfig) (int, error)
}

// ExecSpawner spawns real OS processes via os/exec.
type ExecSpawner struct{}

// Spawn starts a child process and releases it, leaving the reaping to a
// Waiter.
func (s *ExecSpawner) Spawn(cfg SpawnConfig) (int, error) {
	cmd := &exec.Cmd{
		Path:   cfg.Path,
		Args:   cfg.Args,
		Env:    cfg.Env,
		Stdin:  cfg.Stdin,
		Stdout: cfg.Stdout,
		Stderr: cfg.Stderr,
	}
	if len(cmd.Args) == 0 {
		cmd.Args = []string{cfg.Path}
	}

	// Set process group for isolation.
	cmd.SysProcAttr = &syscall.SysProcAttr{}
	if cfg.SysProcAttr != nil {
		cmd.SysProcAttr = cfg.SysProcAttr
	}
	cmd.SysProcAttr.Setpgid = true

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid
	// Wait4 reaps the child; os.Process only needs its handle dropped.
	_ = cmd.Process.Release()
	return pid, nil
}

// MockSpawner is a test double for ProcessSpawner.
type MockSpawner struct {
	SpawnFn    func(cfg SpawnConfig) (int, error)
	SpawnCalls []SpawnConfig
}

// Spawn records the call and delegates to SpawnFn.
func (m *MockSpawner) Spawn(cfg SpawnConfig) (int, error) {
	m.SpawnCalls = append(m.SpawnCalls, cfg)
	if m.SpawnFn != nil {
		return m.SpawnFn(cfg)
	}
	return 1000 + len(m.SpawnCalls), nil
}
