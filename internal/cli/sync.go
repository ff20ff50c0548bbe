package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/leadsync/leadsync/internal/config"
	"github.com/leadsync/leadsync/internal/errors"
	"github.com/leadsync/leadsync/internal/facebook"
	"github.com/leadsync/leadsync/internal/logging"
	"github.com/leadsync/leadsync/internal/notify"
	"github.com/leadsync/leadsync/internal/store"
	syncsvc "github.com/leadsync/leadsync/internal/sync"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a one-off lead sync for a stored user",
	Long: `Run the full account -> form -> lead sync walk once, using the
long-lived token stored for the given user, then exit.

Example:
  leadsync sync --user 1234567890 --config config.yaml`,
	RunE: runSync,
}

var syncFlags struct {
	UserID string
}

func init() {
	syncCmd.Flags().StringVar(&syncFlags.UserID, "user", "", "Facebook user id to sync (required)")
	_ = syncCmd.MarkFlagRequired("user")

	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, s, logger, err := openEnvironment(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	token, err := s.GetUserToken(ctx, syncFlags.UserID)
	if err != nil {
		return err
	}
	if token == "" {
		return &errors.ErrTokenNotFound{UserID: syncFlags.UserID}
	}

	fb := facebook.NewClient(cfg.Facebook, logger)
	service := syncsvc.NewService(fb, s, logger)

	result, err := service.Run(ctx, syncFlags.UserID, token)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	notify.NewNotifier(cfg.Telegram, logger).SyncCompleted(syncFlags.UserID, result)

	log.Printf("Synced %d leads from %d accounts (%d forms)", result.TotalLeads, result.Accounts, result.Forms)
	return nil
}

// openEnvironment loads the config and opens the store for one-off commands.
func openEnvironment(cmd *cobra.Command) (*config.Config, store.Store, *logging.Logger, error) {
	loader := config.NewLoader(globalFlags.Config)
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	dbPath := cfg.Database.Path
	if cmd.Flags().Changed("db") {
		dbPath = globalFlags.DBPath
	}
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open SQLite store: %w", err)
	}

	logger := logging.NewLogger(logging.WithLevel(logging.LogLevel(cfg.Server.LogLevel)))
	return cfg, s, logger, nil
}
