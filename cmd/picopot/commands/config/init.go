package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BERBARIANKING/fosscomm-2024/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Write a sample picopot configuration with every default spelled out
and a freshly generated api.jwt_secret.

By default the file is created at $XDG_CONFIG_HOME/picopot/config.yaml.

Examples:
  picopot config init
  picopot config init --config /etc/picopot/config.yaml
  picopot config init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	var err error
	if configPath != "" {
		err = config.InitConfigToPath(configPath, initForce)
	} else {
		configPath, err = config.InitConfig(initForce)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Change credentials and telnet.hostname to look like your decoy")
	_, _ = fmt.Fprintf(out, "  2. Start the honeypot: picopot start --config %s\n", configPath)
	_, _ = fmt.Fprintln(out, "  3. Issue an API token:  picopot token")
	return nil
}
