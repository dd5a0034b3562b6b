package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/elcapo/elcapo/internal/config"
	"github.com/elcapo/elcapo/internal/events"
	"github.com/elcapo/elcapo/internal/logging"
	"github.com/elcapo/elcapo/internal/metrics"
	"github.com/elcapo/elcapo/internal/supervisor"
	"github.com/elcapo/elcapo/internal/version"
	"github.com/spf13/cobra"
)

func run(cmd *cobra.Command, s *config.Settings) error {
	s.ApplyDefaults()
	if errs := s.Validate(); len(errs) > 0 {
		return fmt.Errorf("%w: %w", errUsage, errors.Join(errs...))
	}

	logger := logging.New(logging.LogConfig{
		Level:  s.LogLevel,
		Format: s.LogFormat,
		Output: cmd.ErrOrStderr(),
	})

	specs, warnings, err := config.Load(s.ConfigFile)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		logger.Warn(w, "file", s.ConfigFile)
	}
	logger.Debug("configuration loaded", "file", s.ConfigFile, "processes", len(specs))

	if s.Daemonize {
		foreground, err := supervisor.Daemonize(supervisor.DaemonConfig{
			LogFile: s.LogFile,
			Logger:  logger,
		})
		if err != nil {
			return fmt.Errorf("daemonize: %w", err)
		}
		if foreground {
			return nil
		}
	}

	if err := supervisor.WritePIDFile(s.PIDFile); err != nil {
		return err
	}
	defer supervisor.RemovePIDFile(s.PIDFile)

	bus := events.NewBus(logger)
	sup := supervisor.New(supervisor.SupervisorConfig{
		Specs:   specs,
		Retries: s.Retries,
		Bus:     bus,
		Logger:  logger,
		Console: cmd.OutOrStdout(),
	})

	if strings.TrimSpace(s.MetricsListen) != "" {
		collector := metrics.New()
		collector.SetBuildInfo(version.Version, version.Go())
		collector.RegisterLiveCount(sup.LiveCount)
		collector.Subscribe(bus)

		srv, err := collector.Listen(s.MetricsListen, logger)
		if err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
		defer srv.Close()
	}

	return sup.Run(cmd.Context())
}
