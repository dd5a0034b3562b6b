// Package testutil provides shared test helpers for the elcapo test suite.
package testutil

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/elcapo/elcapo/internal/config"
)

// TempDir creates a temporary directory for testing and registers cleanup.
// Unlike t.TempDir the path is short, which keeps argv and paths well
// below the config limits.
func TempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "elcapo-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

// FreeTCPAddr returns an available loopback address by binding to :0 and
// releasing it.
func FreeTCPAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("cannot find free port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

// MustParseSpecs parses a line-format config, failing the test on error.
// Intended for concise test setup.
func MustParseSpecs(t *testing.T, content string) []config.ProcessSpec {
	t.Helper()
	specs, err := config.LoadBytes([]byte(content), "test.conf")
	if err != nil {
		t.Fatalf("MustParseSpecs: %v", err)
	}
	return specs
}

// WaitFor polls a condition function until it returns true or the timeout
// expires, failing the test in the latter case.
func WaitFor(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	interval := 50 * time.Millisecond

	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(interval)
	}
	t.Fatal("WaitFor: condition not met within timeout")
}

// WriteFile writes content to a file in the given directory.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("cannot write %s: %v", path, err)
	}
	return path
}

// WriteScript writes an executable /bin/sh script and returns its path.
func WriteScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("cannot write %s: %v", path, err)
	}
	return path
}
