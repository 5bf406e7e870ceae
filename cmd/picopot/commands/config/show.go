package config

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/BERBARIANKING/fosscomm-2024/internal/cli/output"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/config"
)

const redacted = "<redacted>"

var (
	showOutput  string
	showSecrets bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Display the configuration after defaults and environment overrides.

api.jwt_secret is redacted unless --show-secrets is given.

Examples:
  picopot config show
  picopot config show --output json
  PICOPOT_TELNET_PORT=23 picopot config show`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
	showCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print api.jwt_secret in clear")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !showSecrets && cfg.API.JWTSecret != "" {
		cfg.API.JWTSecret = redacted
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, cfg)
	default:
		return output.PrintYAML(os.Stdout, cfg)
	}
}
