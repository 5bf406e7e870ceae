package events

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/BERBARIANKING/fosscomm-2024/cmd/picopot/cmdutil"
	"github.com/BERBARIANKING/fosscomm-2024/internal/cli/output"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/config"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/events"
)

var (
	listOutput  string
	listServer  string
	listKind    string
	listSession string
	listSince   time.Duration
	listLimit   int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal events",
	Long: `List events recorded by a running honeypot, newest first.

Examples:
  # Last 50 events
  picopot events list

  # Credentials tried in the last hour
  picopot events list --kind login --since 1h

  # Everything one session did, as JSON
  picopot events list --session 4f1c2a9e-... --output json`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "Output format (table|json|yaml)")
	listCmd.Flags().StringVar(&listServer, "server", "", "API base URL (default: http://127.0.0.1:<api.port>)")
	listCmd.Flags().StringVar(&listKind, "kind", "", "Only this kind (connect|login|command|disconnect)")
	listCmd.Flags().StringVar(&listSession, "session", "", "Only this session ID")
	listCmd.Flags().DurationVar(&listSince, "since", 0, "Only events newer than this (e.g. 30m, 24h)")
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "Maximum number of events")
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(listOutput)
	if err != nil {
		return err
	}

	filter, err := buildFilter(listKind, listSession, listSince, listLimit, time.Now())
	if err != nil {
		return err
	}

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	client, err := cmdutil.APIClient(cfg, listServer)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	list, err := client.Events(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	table := cmdutil.EventTable(list)
	return cmdutil.PrintOutput(os.Stdout, format, list, len(list) == 0, "No events recorded.", table)
}

// buildFilter converts the list flags into a journal filter.
func buildFilter(kind, session string, since time.Duration, limit int, now time.Time) (events.Filter, error) {
	f := events.Filter{SessionID: session, Limit: limit}

	if kind != "" {
		f.Kind = events.Kind(kind)
		if !f.Kind.Valid() {
			return f, fmt.Errorf("invalid --kind %q (valid: connect, login, command, disconnect)", kind)
		}
	}
	if since < 0 {
		return f, fmt.Errorf("--since must not be negative")
	}
	if since > 0 {
		f.Since = now.Add(-since)
	}
	if limit < 1 {
		return f, fmt.Errorf("--limit must be at least 1")
	}
	return f, nil
}
