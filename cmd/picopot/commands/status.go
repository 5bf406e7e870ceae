package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/BERBARIANKING/fosscomm-2024/cmd/picopot/cmdutil"
	"github.com/BERBARIANKING/fosscomm-2024/internal/cli/output"
	"github.com/BERBARIANKING/fosscomm-2024/internal/cli/timeutil"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/apiclient"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/config"
)

var (
	statusOutput string
	statusServer string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show honeypot status",
	Long: `Display the status of a running honeypot through its API.

Examples:
  # Check the local honeypot
  picopot status

  # Check a remote honeypot
  picopot status --server http://10.0.0.5:8080

  # Output as JSON
  picopot status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusServer, "server", "", "API base URL (default: http://127.0.0.1:<api.port>)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// ServerStatus is the result of the status command.
type ServerStatus struct {
	Server         string `json:"server" yaml:"server"`
	Running        bool   `json:"running" yaml:"running"`
	Ready          bool   `json:"ready" yaml:"ready"`
	Message        string `json:"message" yaml:"message"`
	ActiveSessions int32  `json:"active_sessions" yaml:"active_sessions"`
	StartedAt      string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime         string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	client, err := cmdutil.APIClient(cfg, statusServer)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status := collectStatus(ctx, client)
	status.Server = cmdutil.ServerURL(cfg, statusServer)

	if format != output.FormatTable {
		return output.NewPrinter(os.Stdout, format, false).Print(status)
	}
	return printStatusTable(status)
}

func collectStatus(ctx context.Context, client *apiclient.Client) ServerStatus {
	status := ServerStatus{Message: "Honeypot is not running"}

	if _, err := client.Health(ctx); err != nil {
		return status
	}
	status.Running = true

	if err := client.Ready(ctx); err != nil {
		status.Message = fmt.Sprintf("Honeypot is running but not ready: %v", err)
	} else {
		status.Ready = true
		status.Message = "Honeypot is running and ready"
	}

	stats, err := client.Stats(ctx)
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.IsAuthError() {
			status.Message += " (stats require a valid api.jwt_secret)"
		}
		return status
	}
	status.ActiveSessions = stats.ActiveSessions
	status.StartedAt = timeutil.FormatTime(stats.StartedAt)
	status.Uptime = timeutil.ParseUptime(stats.Uptime)
	return status
}

func printStatusTable(status ServerStatus) error {
	state := "\033[31m○ Stopped\033[0m"
	switch {
	case status.Ready:
		state = "\033[32m● Running\033[0m"
	case status.Running:
		state = "\033[33m● Running (not ready)\033[0m"
	}

	pairs := [][2]string{
		{"Server", status.Server},
		{"Status", state},
	}
	if status.Running {
		pairs = append(pairs,
			[2]string{"Active sessions", strconv.Itoa(int(status.ActiveSessions))},
			[2]string{"Started", status.StartedAt},
			[2]string{"Uptime", status.Uptime},
		)
	}

	fmt.Println()
	if err := output.PrintKeyValues(os.Stdout, pairs); err != nil {
		return err
	}
	fmt.Printf("\n  %s\n\n", status.Message)
	return nil
}
