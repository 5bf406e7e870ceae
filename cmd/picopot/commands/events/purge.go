package events

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/BERBARIANKING/fosscomm-2024/internal/cli/prompt"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/config"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/events"
)

var purgeYes bool

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every event from the journal",
	Long: `Delete every event from the configured journal store.

The store is opened directly, so stop the honeypot first when using the
badger backend. The memory backend has nothing to purge offline.

Examples:
  picopot events purge
  picopot events purge --yes --config /etc/picopot/config.yaml`,
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().BoolVarP(&purgeYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runPurge(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	if cfg.Events.Type == events.StoreMemory {
		return fmt.Errorf("the memory journal only exists inside a running honeypot; restart it to clear the journal")
	}

	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete every event from the %s journal", cfg.Events.Type), purgeYes)
	if err != nil {
		if prompt.IsAborted(err) {
			return nil
		}
		return err
	}
	if !ok {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
		return nil
	}

	n, err := purgeStore(&cfg.Events)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Purged %d events.\n", n)
	return nil
}

func purgeStore(cfg *events.Config) (int, error) {
	store, err := events.New(cfg)
	if err != nil {
		return 0, fmt.Errorf("failed to open event store: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := store.Purge(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to purge events: %w", err)
	}
	return n, nil
}
