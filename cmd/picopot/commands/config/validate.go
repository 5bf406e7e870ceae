package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BERBARIANKING/fosscomm-2024/pkg/config"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/events"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/session"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate the picopot configuration file.

Checks syntax, required fields, value ranges and port conflicts, and loads
the filesystem tree so that a bad tree_file or start_path is reported
before the honeypot starts.

Examples:
  picopot config validate
  picopot config validate --config /etc/picopot/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	sessionCfg, err := cfg.SessionConfig()
	if err != nil {
		return err
	}
	dirs, files := sessionCfg.Tree.Stats()

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if warnings := configWarnings(cfg); len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintln(out, "\nConfiguration summary:")
	_, _ = fmt.Fprintf(out, "  TELNET port:     %d\n", cfg.Telnet.Port)
	_, _ = fmt.Fprintf(out, "  Hostname:        %s\n", cfg.Telnet.Hostname)
	_, _ = fmt.Fprintf(out, "  Filesystem:      %d directories, %d files (start %s)\n", dirs, files, cfg.Filesystem.StartPath)
	_, _ = fmt.Fprintf(out, "  Event store:     %s\n", cfg.Events.Type)
	if cfg.API.IsEnabled() {
		_, _ = fmt.Fprintf(out, "  API port:        %d\n", cfg.API.Port)
	}
	if cfg.Metrics.Enabled {
		_, _ = fmt.Fprintf(out, "  Metrics port:    %d\n", cfg.Metrics.Port)
	}
	_, _ = fmt.Fprintf(out, "  Log level:       %s\n", cfg.Logging.Level)
	return nil
}

// configWarnings lists settings that are valid but probably unintended.
func configWarnings(cfg *config.Config) []string {
	var warnings []string

	if cfg.API.IsEnabled() && cfg.API.JWTSecret == "" {
		warnings = append(warnings, "api.jwt_secret not set - the journal API is unauthenticated")
	}
	if cfg.Events.Type == events.StoreMemory {
		warnings = append(warnings, "events.type is memory - the journal is lost on restart")
	}
	def := session.DefaultCredentials()
	if cfg.Credentials.Username == def.Username && cfg.Credentials.Password == def.Password {
		warnings = append(warnings, "credentials are the built-in admin/password pair")
	}
	if cfg.Telnet.MaxConnections < 0 {
		warnings = append(warnings, "telnet.max_connections is unlimited")
	}
	if cfg.Filesystem.Watch && cfg.Filesystem.TreeFile == "" {
		warnings = append(warnings, "filesystem.watch has no effect without filesystem.tree_file")
	}
	return warnings
}
