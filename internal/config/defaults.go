package config

import (
	"fmt"
	"strings"
)

// DefaultRetries is the restart budget used when none is given.
const DefaultRetries = 3

// Settings holds the global supervisor options.
type Settings struct {
	ConfigFile    string
	Retries       int
	Daemonize     bool
	LogFile       string // daemon stdout/stderr destination, empty for the null device
	PIDFile       string
	LogLevel      string // "debug", "info", "warn", "error"
	LogFormat     string // "text", "json", "journal"
	MetricsListen string // empty disables the metrics listener
}

// DefaultSettings returns settings with every default applied.
func DefaultSettings() Settings {
	s := Settings{Retries: DefaultRetries}
	s.ApplyDefaults()
	return s
}

// ApplyDefaults fills in zero-value fields with their default values.
func (s *Settings) ApplyDefaults() {
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.LogFormat == "" {
		s.LogFormat = "json"
	}
}

var validLogFormats = map[string]bool{
	"text": true, "json": true, "journal": true,
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks the settings and returns all problems found.
func (s *Settings) Validate() []error {
	var errs []error

	if strings.TrimSpace(s.ConfigFile) == "" {
		errs = append(errs, fmt.Errorf("must specify configuration file"))
	}
	if s.Retries < 1 {
		errs = append(errs, fmt.Errorf("invalid retries number: %d", s.Retries))
	}
	if !validLogFormats[strings.ToLower(s.LogFormat)] {
		errs = append(errs, fmt.Errorf("invalid log format %q", s.LogFormat))
	}
	if !validLogLevels[strings.ToLower(s.LogLevel)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", s.LogLevel))
	}

	return errs
}
