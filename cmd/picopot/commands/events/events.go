// Package events implements the journal subcommands.
package events

import (
	"github.com/spf13/cobra"
)

// Cmd is the events subcommand.
var Cmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the event journal",
	Long: `Inspect and manage the event journal.

Subcommands:
  list   Query a running honeypot's journal through its API
  purge  Delete every event from the configured store (honeypot stopped)`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(purgeCmd)
}
