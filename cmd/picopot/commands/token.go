package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/BERBARIANKING/fosscomm-2024/pkg/api/auth"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/config"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a token for the journal API",
	Long: `Issue a signed Bearer token for /api/v1, using api.jwt_secret from the
configuration file.

Examples:
  # Token for a dashboard, valid for 30 days
  picopot token --subject grafana --ttl 720h

  # Query the journal with curl
  curl -H "Authorization: Bearer $(picopot token)" http://127.0.0.1:8080/api/v1/events`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "operator", "Token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", auth.DefaultTokenTTL, "Token lifetime")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if cfg.API.JWTSecret == "" {
		return fmt.Errorf("api.jwt_secret is not set; the API accepts requests without a token")
	}

	tokens, err := auth.NewTokenService(cfg.API.JWTSecret)
	if err != nil {
		return fmt.Errorf("invalid api.jwt_secret: %w", err)
	}

	token, expires, err := tokens.Issue(tokenSubject, tokenTTL)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Local().Format(time.RFC3339))
	return nil
}
