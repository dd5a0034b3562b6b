package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/elcapo/elcapo/internal/config"
	"github.com/elcapo/elcapo/internal/testutil"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRootCommandHelp(t *testing.T) {
	code, out, _ := runCLI(t, "--help")
	if code != exitOK {
		t.Fatalf("exit code = %d, want 0", code)
	}
	for _, want := range []string{"-c, --config", "-d, --daemon", "-r, --retries", "-l, --logfile", "--pidfile", "version"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestShortHelpFlag(t *testing.T) {
	code, out, _ := runCLI(t, "-h")
	if code != exitOK {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.Contains(out, "Usage:") {
		t.Errorf("help output missing usage:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	if code != exitOK {
		t.Fatalf("exit code = %d, want 0", code)
	}
	for _, want := range []string{"elcapo", "commit:", "built:", "go:", "os/arch:"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q", want)
		}
	}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing config", nil, "must specify configuration file"},
		{"zero retries", []string{"-c", "x.conf", "-r", "0"}, "invalid retries number: 0"},
		{"negative retries", []string{"-c", "x.conf", "-r", "-2"}, "invalid retries number: -2"},
		{"non-numeric retries", []string{"-c", "x.conf", "-r", "abc"}, "invalid argument"},
		{"unknown flag", []string{"--bogus"}, "unknown flag"},
		{"bad log level", []string{"-c", "x.conf", "--log-level", "loud"}, "invalid log level"},
		{"bad log format", []string{"-c", "x.conf", "--log-format", "xml"}, "invalid log format"},
		{"positional argument", []string{"-c", "x.conf", "extra"}, "unexpected argument"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCLI(t, tt.args...)
			if code != exitUsage {
				t.Fatalf("exit code = %d, want %d (stderr: %s)", code, exitUsage, errOut)
			}
			if !strings.Contains(errOut, tt.want) {
				t.Errorf("stderr missing %q:\n%s", tt.want, errOut)
			}
			if !strings.Contains(errOut, "Usage:") {
				t.Errorf("stderr missing usage text:\n%s", errOut)
			}
		})
	}
}

func TestConfigErrors(t *testing.T) {
	dir := testutil.TempDir(t)
	oneField := testutil.WriteFile(t, dir, "one.conf", "R /bin/true\nR\n")
	longPath := testutil.WriteFile(t, dir, "long.conf", "R /"+strings.Repeat("a", config.MaxPathLength)+"\n")

	tests := []struct {
		name string
		path string
		want string
	}{
		{"missing file", filepath.Join(dir, "missing.conf"), "cannot read config"},
		{"single field line", oneField, "line 2"},
		{"path too long", longPath, "path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, errOut := runCLI(t, "-c", tt.path, "--log-format", "text")
			if code != exitConfig {
				t.Fatalf("exit code = %d, want %d (stderr: %s)", code, exitConfig, errOut)
			}
			if !strings.Contains(errOut, tt.want) {
				t.Errorf("stderr missing %q:\n%s", tt.want, errOut)
			}
			if strings.Contains(out, "Started:") {
				t.Errorf("processes launched despite a config error:\n%s", out)
			}
		})
	}
}

func TestRunConfig(t *testing.T) {
	dir := testutil.TempDir(t)
	ok := testutil.WriteScript(t, dir, "ok.sh", "exit 0")
	fail := testutil.WriteScript(t, dir, "fail.sh", "exit 1")
	cfg := testutil.WriteFile(t, dir, "elcapo.conf", fmt.Sprintf("N %s\nR %s --flag\n", ok, fail))
	pidFile := filepath.Join(dir, "elcapo.pid")

	code, out, errOut := runCLI(t, "-c", cfg, "-r", "1", "--pidfile", pidFile, "--log-format", "text")
	if code != exitOK {
		t.Fatalf("exit code = %d, want 0 (stderr: %s)", code, errOut)
	}

	for _, want := range []string{
		"Started: " + ok + " pid: ",
		"Started: " + fail + " pid: ",
		"REStarted: " + fail + " pid:",
		"try:1",
		"exit:true code:1",
		"exit:true code:0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "try:2") {
		t.Errorf("restarted beyond -r 1:\n%s", out)
	}
	if _, err := os.Stat(pidFile); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("pid file not removed after run: %v", err)
	}
}

func TestRunTOMLConfig(t *testing.T) {
	dir := testutil.TempDir(t)
	ok := testutil.WriteScript(t, dir, "ok.sh", "exit 0")
	cfg := testutil.WriteFile(t, dir, "elcapo.toml", fmt.Sprintf(`
[[process]]
path = %q
args = ["one", "two"]
restart = true
`, ok))

	code, out, errOut := runCLI(t, "-c", cfg, "--log-format", "text")
	if code != exitOK {
		t.Fatalf("exit code = %d, want 0 (stderr: %s)", code, errOut)
	}
	if !strings.Contains(out, "Started: "+ok+" pid: ") {
		t.Errorf("stdout missing start line:\n%s", out)
	}
	if strings.Contains(out, "REStarted") {
		t.Errorf("clean exit was restarted:\n%s", out)
	}
}

func TestRunMetricsListenerError(t *testing.T) {
	dir := testutil.TempDir(t)
	ok := testutil.WriteScript(t, dir, "ok.sh", "exit 0")
	cfg := testutil.WriteFile(t, dir, "elcapo.conf", "N "+ok+"\n")

	code, out, errOut := runCLI(t, "-c", cfg, "--metrics-listen", "127.0.0.1:-1", "--log-format", "text")
	if code != exitRuntime {
		t.Fatalf("exit code = %d, want %d (stderr: %s)", code, exitRuntime, errOut)
	}
	if !strings.Contains(errOut, "metrics listener") {
		t.Errorf("stderr missing listener error:\n%s", errOut)
	}
	if strings.Contains(out, "Started:") {
		t.Errorf("processes launched despite a listener error:\n%s", out)
	}
}

func TestRunWithMetrics(t *testing.T) {
	dir := testutil.TempDir(t)
	ok := testutil.WriteScript(t, dir, "ok.sh", "exit 0")
	cfg := testutil.WriteFile(t, dir, "elcapo.conf", "N "+ok+"\n")

	code, out, errOut := runCLI(t, "-c", cfg, "--metrics-listen", testutil.FreeTCPAddr(t), "--log-format", "text")
	if code != exitOK {
		t.Fatalf("exit code = %d, want 0 (stderr: %s)", code, errOut)
	}
	if !strings.Contains(out, "exit:true code:0") {
		t.Errorf("stdout missing finish line:\n%s", out)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{fmt.Errorf("%w: bad flag", errUsage), exitUsage},
		{fmt.Errorf("%w: bad line", config.ErrInvalid), exitConfig},
		{errors.New("setsid failed"), exitRuntime},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
