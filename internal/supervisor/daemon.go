package supervisor

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"

	"golang.org/x/sys/unix"
)

// DaemonChildEnv marks the re-executed copy of the supervisor that must
// detach instead of spawning another copy.
const DaemonChildEnv = "ELCAPO_DAEMON_CHILD"

// WritePIDFile writes the current process PID to the given path.
func WritePIDFile(path string) error {
	if path == "" {
		return nil
	}
	pid := os.Getpid()
	data := []byte(strconv.Itoa(pid) + "\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("cannot write PID file: %s: %w", path, err)
	}
	return nil
}

// RemovePIDFile removes the PID file if it exists.
func RemovePIDFile(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}

// DaemonConfig controls detachment.
type DaemonConfig struct {
	LogFile    string   // stdout/stderr destination, empty means the null device
	Executable string   // binary to re-execute, empty means os.Executable()
	Args       []string // full argv, nil means os.Args
	Env        []string // nil means os.Environ()
	Logger     *slog.Logger
}

// IsDaemonChild reports whether this process is the detached copy.
func IsDaemonChild() bool {
	return os.Getenv(DaemonChildEnv) == "1"
}

// Daemonize moves the supervisor into the background. In the foreground
// process it starts a detached copy of the binary and returns true; the
// caller must then exit with status 0. In the copy it completes detachment
// via Detach and returns false.
func Daemonize(cfg DaemonConfig) (bool, error) {
	if IsDaemonChild() {
		if err := Detach(cfg.LogFile); err != nil {
			return false, err
		}
		return false, nil
	}

	// Fail in the foreground, where the operator can still see the error.
	if cfg.LogFile != "" {
		f, err := openLogFile(cfg.LogFile)
		if err != nil {
			return false, err
		}
		f.Close()
	}

	exe := cfg.Executable
	if exe == "" {
		var err error
		exe, err = os.Executable()
		if err != nil {
			return false, fmt.Errorf("cannot locate executable: %w", err)
		}
	}
	args := cfg.Args
	if args == nil {
		args = os.Args
	}
	env := cfg.Env
	if env == nil {
		env = os.Environ()
	}

	cmd := &exec.Cmd{
		Path: exe,
		Args: args,
		Env:  append(env[:len(env):len(env)], DaemonChildEnv+"=1"),
	}
	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("cannot start daemon: %w", err)
	}
	pid := cmd.Process.Pid
	_ = cmd.Process.Release()

	if cfg.Logger != nil {
		cfg.Logger.Info("daemon started", "pid", pid)
	}
	return true, nil
}

// Detach starts a new session, points stdin at the null device and
// stdout/stderr at logFile (or the null device when empty). Failing to
// create the session is fatal for the caller.
func Detach(logFile string) error {
	if _, err := unix.Setsid(); err != nil {
		return fmt.Errorf("setsid failed: %w", err)
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	if err := dupFD(int(devNull.Fd()), int(os.Stdin.Fd())); err != nil {
		return fmt.Errorf("redirect stdin: %w", err)
	}

	out := devNull
	if logFile != "" {
		f, err := openLogFile(logFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := dupFD(int(out.Fd()), int(os.Stdout.Fd())); err != nil {
		return fmt.Errorf("redirect stdout: %w", err)
	}
	if err := dupFD(int(out.Fd()), int(os.Stderr.Fd())); err != nil {
		return fmt.Errorf("redirect stderr: %w", err)
	}

	// Children spawned from here on must not detach again.
	_ = os.Unsetenv(DaemonChildEnv)
	return nil
}

func openLogFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file: %s: %w", path, err)
	}
	return f, nil
}
