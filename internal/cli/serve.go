package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/leadsync/leadsync/internal/api"
	"github.com/leadsync/leadsync/internal/config"
	"github.com/leadsync/leadsync/internal/facebook"
	"github.com/leadsync/leadsync/internal/logging"
	"github.com/leadsync/leadsync/internal/notify"
	"github.com/leadsync/leadsync/internal/store"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s", "server", "run"},
	Short:   "Start the LeadSync server",
	Long: `Start the LeadSync server in main mode.

This command starts the HTTP server that handles the Facebook login flow,
the lead dashboard API and the export downloads.

Example:
  leadsync serve --config config.yaml --db ./data/leadsync.db`,
	RunE: runServe,
}

var serveFlags struct {
	Host    string
	Port    int
	Timeout time.Duration
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.Host, "host", "", "Server host (overrides config)")
	serveCmd.Flags().IntVar(&serveFlags.Port, "port", 0, "Server port (overrides config)")
	serveCmd.Flags().DurationVar(&serveFlags.Timeout, "timeout", 30*time.Second, "Shutdown timeout")

	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if globalFlags.Verbose {
		log.Println("Starting LeadSync server...")
		log.Printf("Config path: %s", globalFlags.Config)
	}

	// Load configuration
	loader := config.NewLoader(globalFlags.Config)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Apply CLI flags to config
	if serveFlags.Host != "" {
		cfg.Server.Host = serveFlags.Host
	}
	if serveFlags.Port != 0 {
		cfg.Server.HTTPPort = serveFlags.Port
	}

	logger := logging.NewLogger(logging.WithLevel(logging.LogLevel(cfg.Server.LogLevel)))

	// Hot-reload: log config changes; a restart is still needed to
	// re-bind the listener or swap the database.
	loader.SetOnChange(func(next *config.Config) {
		logger.Info("configuration reloaded", "path", globalFlags.Config)
	})
	if err := loader.StartWatcher(); err != nil {
		logger.Warn("config watcher unavailable", "error", err.Error())
	}
	defer loader.StopWatcher()

	// Create SQLite store with WAL mode enabled
	dbPath := cfg.Database.Path
	if cmd.Flags().Changed("db") {
		dbPath = globalFlags.DBPath
	}
	sqliteStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to create SQLite store: %w", err)
	}

	if globalFlags.Verbose {
		log.Printf("Database initialized at: %s", dbPath)
	}

	fb := facebook.NewClient(cfg.Facebook, logger)
	notifier := notify.NewNotifier(cfg.Telegram, logger)
	server := api.NewServer(cfg, sqliteStore, fb, logger, notifier)

	// Setup graceful shutdown
	setupGracefulShutdown(server, serveFlags.Timeout)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort)
	log.Printf("Starting LeadSync HTTP server on %s", addr)
	log.Printf("Database: %s (WAL mode enabled)", dbPath)

	if err := server.Run(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// setupGracefulShutdown handles graceful shutdown on SIGINT/SIGTERM
func setupGracefulShutdown(server *api.Server, timeout time.Duration) {
	sigChan := api.SetupSignalHandler()

	go func() {
		sig := api.WaitForSignal(sigChan)
		log.Printf("Received signal: %v", sig)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		log.Println("Shutting down API server...")
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Error during server shutdown: %v", err)
		}

		log.Println("Graceful shutdown completed")
	}()
}
