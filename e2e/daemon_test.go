//go:build e2e

package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestDaemon_DetachesAndReports(t *testing.T) {
	dir := shortTempDir(t)
	sleeper := writeScript(t, dir, "sleep.sh", "exec sleep 60")
	once := writeScript(t, dir, "once.sh", "echo oneshot-ran")
	cfg := writeConfig(t, dir, "elcapo.conf", fmt.Sprintf("R %s\nN %s\n", sleeper, once))
	logPath := filepath.Join(dir, "elcapo.log")
	pidPath := filepath.Join(dir, "elcapo.pid")

	res := runElcapo(t, 10*time.Second, "-d", "-c", cfg, "-l", logPath, "--pidfile", pidPath)
	if res.code != 0 {
		t.Fatalf("foreground exit code = %d, want 0 (stderr: %s)", res.code, res.stderr)
	}
	if strings.Contains(res.stdout, "Started:") {
		t.Errorf("status lines leaked to the foreground:\n%s", res.stdout)
	}

	pid := readPIDFile(t, pidPath)
	t.Cleanup(func() { _ = unix.Kill(pid, unix.SIGKILL) })

	sid, err := unix.Getsid(pid)
	if err != nil {
		t.Fatalf("getsid(%d): %v", pid, err)
	}
	if sid != pid {
		t.Errorf("daemon is not a session leader: pid %d sid %d", pid, sid)
	}

	waitForFile(t, logPath, "Started: "+sleeper, 5*time.Second)
	waitForFile(t, logPath, "oneshot-ran", 5*time.Second)
	waitForFile(t, logPath, "exit:true code:0", 5*time.Second)

	signalPID(t, pid, unix.SIGHUP)
	waitForFile(t, logPath, "Running processes: 1\n", 5*time.Second)

	signalPID(t, pid, unix.SIGTERM)
	waitForRemoved(t, pidPath, 10*time.Second)

	log, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(log), "exit:false signal:SIGTERM") {
		t.Errorf("sleeper was not terminated:\n%s", log)
	}
	if strings.Contains(string(log), "REStarted") {
		t.Errorf("restart during shutdown:\n%s", log)
	}
}

func TestDaemon_WithoutLogFile(t *testing.T) {
	dir := shortTempDir(t)
	sleeper := writeScript(t, dir, "sleep.sh", "exec sleep 60")
	cfg := writeConfig(t, dir, "elcapo.conf", "N "+sleeper+"\n")
	pidPath := filepath.Join(dir, "elcapo.pid")

	res := runElcapo(t, 10*time.Second, "-d", "-c", cfg, "--pidfile", pidPath)
	if res.code != 0 {
		t.Fatalf("foreground exit code = %d, want 0 (stderr: %s)", res.code, res.stderr)
	}

	pid := readPIDFile(t, pidPath)
	t.Cleanup(func() { _ = unix.Kill(pid, unix.SIGKILL) })

	// Output goes to the null device, so SIGHUP must simply not kill it.
	signalPID(t, pid, unix.SIGHUP)
	time.Sleep(200 * time.Millisecond)
	if err := unix.Kill(pid, 0); err != nil {
		t.Fatalf("daemon died after SIGHUP: %v", err)
	}

	signalPID(t, pid, unix.SIGTERM)
	waitForRemoved(t, pidPath, 10*time.Second)
}

func TestDaemon_UnwritableLogFile(t *testing.T) {
	dir := shortTempDir(t)
	cfg := writeConfig(t, dir, "elcapo.conf", "N /bin/true\n")

	res := runElcapo(t, 10*time.Second, "-d", "-c", cfg, "-l", filepath.Join(dir, "missing", "elcapo.log"))
	if res.code != 3 {
		t.Fatalf("exit code = %d, want 3 (stderr: %s)", res.code, res.stderr)
	}
	if !strings.Contains(res.stderr, "cannot open log file") {
		t.Errorf("stderr missing reason:\n%s", res.stderr)
	}
}
