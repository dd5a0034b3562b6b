// Package config loads the list of supervised processes and validates the
// global supervisor settings.
package config

import "errors"

// Capacity limits for a single configuration.
const (
	MaxProcesses  = 100 // processes per configuration file
	MaxPathLength = 255 // bytes in an executable path
	MaxArgs       = 10  // argv entries, including argv[0]
)

// ErrInvalid marks errors caused by an unreadable or malformed
// configuration file.
var ErrInvalid = errors.New("invalid configuration")

// ProcessSpec describes one process to supervise. It is never modified after
// loading.
type ProcessSpec struct {
	Path        string   // executable path, also argv[0]
	Args        []string // full argument vector
	Restartable bool     // restart on failure
	Line        int      // source line, 0 when unknown
}

// ExtraArgs returns the arguments after argv[0].
func (s ProcessSpec) ExtraArgs() []string {
	if len(s.Args) <= 1 {
		return nil
	}
	return s.Args[1:]
}

// file is the TOML representation of a configuration file.
type file struct {
	Process []processEntry `toml:"process"`
}

type processEntry struct {
	Path    string   `toml:"path"`
	Args    []string `toml:"args"`
	Restart bool     `toml:"restart"`
}
