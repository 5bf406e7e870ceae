// Package commands implements the picopot CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/BERBARIANKING/fosscomm-2024/cmd/picopot/commands/config"
	"github.com/BERBARIANKING/fosscomm-2024/cmd/picopot/commands/events"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "picopot",
	Short: "picopot - TELNET honeypot",
	Long: `picopot is a low-interaction TELNET honeypot. It presents a login prompt
and a fake shell over an in-memory filesystem, and journals every
connection, credential and command it receives.

Use "picopot [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/picopot/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(config.Cmd)
	rootCmd.AddCommand(events.Cmd)
	rootCmd.AddCommand(completionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the value of the --config flag.
func GetConfigFile() string {
	return cfgFile
}
