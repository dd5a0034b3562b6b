package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/elcapo/elcapo/internal/config"
	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	exitOK      = 0
	exitUsage   = 1
	exitConfig  = 2
	exitRuntime = 3
)

// errUsage marks command-line mistakes.
var errUsage = errors.New("usage error")

func newRootCmd() *cobra.Command {
	settings := config.DefaultSettings()

	cmd := &cobra.Command{
		Use:   "elcapo -c <config> [flags]",
		Short: "elcapo -- single-host process supervisor",
		Long: "elcapo launches the processes listed in a configuration file, " +
			"restarts the ones marked restartable when they fail, and " +
			"reports the number of running processes on SIGHUP.",
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &settings)
		},
	}
	bindFlags(cmd.Flags(), &settings)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func noArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: unexpected argument %q", errUsage, args[0])
	}
	return nil
}

// exitCode maps an error returned by the root command to a process exit
// status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage):
		return exitUsage
	case errors.Is(err, config.ErrInvalid):
		return exitConfig
	default:
		return exitRuntime
	}
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	code := exitCode(err)
	if err != nil {
		fmt.Fprintf(stderr, "elcapo: %v\n", err)
		if code == exitUsage {
			fmt.Fprint(stderr, root.UsageString())
		}
	}
	return code
}

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
