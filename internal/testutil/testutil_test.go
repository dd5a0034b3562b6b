package testutil

import (
	"net"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestTempDir(t *testing.T) {
	dir := TempDir(t)
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("temp dir does not exist: %v", err)
	}
}

func TestFreeTCPAddr(t *testing.T) {
	addr := FreeTCPAddr(t)
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatal(err)
	}
	if host != "127.0.0.1" {
		t.Errorf("host = %q, want 127.0.0.1", host)
	}
	if port == "" || port == "0" {
		t.Fatalf("invalid port: %q", port)
	}
}

func TestMustParseSpecs(t *testing.T) {
	specs := MustParseSpecs(t, "R /bin/sleep 1\nN /bin/true\n")
	if len(specs) != 2 {
		t.Fatalf("len(specs) = %d, want 2", len(specs))
	}
	if !specs[0].Restartable {
		t.Error("first entry should be restartable")
	}
	if specs[1].Path != "/bin/true" {
		t.Errorf("path = %q, want /bin/true", specs[1].Path)
	}
}

func TestWaitFor(t *testing.T) {
	counter := 0
	WaitFor(t, func() bool {
		counter++
		return counter >= 3
	}, 5*time.Second)

	if counter < 3 {
		t.Errorf("counter = %d, want >= 3", counter)
	}
}

func TestWriteFile(t *testing.T) {
	dir := TempDir(t)
	path := WriteFile(t, dir, "test.txt", "hello")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q, want hello", string(data))
	}
}

func TestWriteScript(t *testing.T) {
	dir := TempDir(t)
	path := WriteScript(t, dir, "hello.sh", "echo hello")

	out, err := exec.Command(path).Output()
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(out)) != "hello" {
		t.Errorf("output = %q, want hello", out)
	}
}
