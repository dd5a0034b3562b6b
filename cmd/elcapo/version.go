package main

import (
	"fmt"
	"runtime"

	"github.com/elcapo/elcapo/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, line := range []string{
				fmt.Sprintf("elcapo %s", version.Version),
				fmt.Sprintf("  commit:  %s", version.Commit),
				fmt.Sprintf("  built:   %s", version.Date),
				fmt.Sprintf("  go:      %s", version.Go()),
				fmt.Sprintf("  os/arch: %s/%s", runtime.GOOS, runtime.GOARCH),
			} {
				if _, err := fmt.Fprintln(w, line); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
