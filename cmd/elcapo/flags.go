package main

import (
	"os"

	"github.com/elcapo/elcapo/internal/config"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

func bindFlags(fs *pflag.FlagSet, s *config.Settings) {
	fs.SortFlags = false

	fs.StringVarP(&s.ConfigFile, "config", "c", "", "configuration file (required)")
	fs.BoolVarP(&s.Daemonize, "daemon", "d", false, "detach and run in the background")
	fs.IntVarP(&s.Retries, "retries", "r", config.DefaultRetries, "restart budget per restartable process")
	fs.StringVarP(&s.LogFile, "logfile", "l", "", "daemon output file (default: null device)")
	fs.StringVar(&s.PIDFile, "pidfile", "", "write the supervisor PID to this file")
	fs.StringVar(&s.LogLevel, "log-level", s.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&s.LogFormat, "log-format", defaultLogFormat(), "log format: text, json, journal")
	fs.StringVar(&s.MetricsListen, "metrics-listen", "", "serve Prometheus metrics on this address")
}

// defaultLogFormat picks human-readable logs for an interactive terminal.
func defaultLogFormat() string {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return "text"
	}
	return "json"
}
