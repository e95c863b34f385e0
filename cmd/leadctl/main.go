// Command leadctl runs maintenance tasks against the lead store: schema
// migration and bulk imports from CSV files, pasted lists and published
// sheets.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xavierca1/nivesh-crm/internal/app"
	"github.com/xavierca1/nivesh-crm/internal/config"
	"github.com/xavierca1/nivesh-crm/internal/infra/database"
)

// cli carries what every subcommand needs once the root pre-run has loaded
// the configuration.
type cli struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "leadctl",
		Short:         "Lead store maintenance and bulk import",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			logger, err := cfg.Log.NewLogger()
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.AddCommand(newMigrateCmd(c), newImportCmd(c))
	return root
}

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Store.Backend != "postgres" {
				return errors.New("migrate needs STORE_BACKEND=postgres")
			}
			db, err := database.NewDBConnection(c.cfg.Database.Driver, c.cfg.Database.URL, database.PoolConfig{
				MaxOpenConns: 1,
			})
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			c.logger.Info("schema applied")
			return nil
		},
	}
}

// openStores is shared by the import subcommands.
func (c *cli) openStores(ctx context.Context) (*app.Stores, error) {
	if c.cfg.Store.Backend == "memory" {
		c.logger.Warn("importing into the in-memory store; nothing is persisted")
	}
	return app.OpenStores(ctx, c.cfg, c.logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "leadctl:", err)
		os.Exit(1)
	}
}
