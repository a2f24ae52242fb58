package commands

import (
	"fmt"
	"runtime"

	"github.com/leapstack-labs/leapquery/pkg/adapter"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display LeapQuery version, build information and the available database backends.`,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "LeapQuery v%s\n", version)
			_, _ = fmt.Fprintf(out, "commit %s, built %s, %s\n", commit, date, runtime.Version())
			_, _ = fmt.Fprintf(out, "backends: %v\n", adapter.ListAdapters())
		},
	}
}
