package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "picopot %s\n", Version)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", Commit)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", Date)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}
