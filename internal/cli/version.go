package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"relatics.dev/relatics/internal/version"
)

// newVersionCmd creates the version command.
func newVersionCmd(commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the relatics version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "relatics %s (commit %s, built %s)\n", version.Version, commit, date)
		},
	}
}
