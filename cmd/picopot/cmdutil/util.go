// Package cmdutil holds helpers shared by picopot subcommands.
package cmdutil

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/BERBARIANKING/fosscomm-2024/internal/cli/output"
	"github.com/BERBARIANKING/fosscomm-2024/internal/cli/timeutil"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/api/auth"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/apiclient"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/config"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/events"
)

// CLITokenTTL is the lifetime of tokens minted for a single CLI call.
const CLITokenTTL = 5 * time.Minute

// CLISubject is the subject of tokens minted by the CLI.
const CLISubject = "picopot-cli"

// ServerURL returns serverURL, or the local API address from cfg when empty.
func ServerURL(cfg *config.Config, serverURL string) string {
	if serverURL != "" {
		return serverURL
	}
	return fmt.Sprintf("http://127.0.0.1:%d", cfg.API.Port)
}

// APIClient returns a client for the running server. When api.jwt_secret is
// configured a short-lived token is minted with it.
func APIClient(cfg *config.Config, serverURL string) (*apiclient.Client, error) {
	if !cfg.API.IsEnabled() && serverURL == "" {
		return nil, fmt.Errorf("the API is disabled in the configuration (api.enabled: false)")
	}

	client := apiclient.New(ServerURL(cfg, serverURL))
	if cfg.API.JWTSecret == "" {
		return client, nil
	}

	tokens, err := auth.NewTokenService(cfg.API.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid api.jwt_secret: %w", err)
	}
	token, _, err := tokens.Issue(CLISubject, CLITokenTTL)
	if err != nil {
		return nil, err
	}
	return client.WithToken(token), nil
}

// PrintOutput renders data in format. For tables, emptyMsg replaces an
// empty table.
func PrintOutput(w io.Writer, format output.Format, data any, isEmpty bool, emptyMsg string, table output.TableRenderer) error {
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		if isEmpty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, table)
	}
}

// EventTable renders journal events, one per row.
type EventTable []events.Event

func (t EventTable) Headers() []string {
	return []string{"Time", "Session", "Kind", "Remote", "Detail"}
}

func (t EventTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, e := range t {
		rows = append(rows, []string{
			timeutil.FormatTime(e.Time),
			ShortID(e.SessionID),
			string(e.Kind),
			e.RemoteAddr,
			EventDetail(e),
		})
	}
	return rows
}

// ShortID truncates a session UUID to its first block.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// EventDetail summarizes the kind-specific fields of e.
func EventDetail(e events.Event) string {
	switch e.Kind {
	case events.KindLogin:
		result := "failed"
		if e.Success {
			result = "ok"
		}
		return fmt.Sprintf("%s / %s (%s)", strconv.Quote(e.Username), strconv.Quote(e.Password), result)
	case events.KindCommand:
		return strconv.Quote(e.Line)
	case events.KindDisconnect:
		return fmt.Sprintf("%s after %s", e.Reason, timeutil.FormatUptime(time.Duration(e.DurationMs)*time.Millisecond))
	default:
		return ""
	}
}
