package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"

	"github.com/JoshuaRamirez/ACS-sub017/internal/db/bunx"
	"github.com/JoshuaRamirez/ACS-sub017/internal/migrations"
	"github.com/JoshuaRamirez/ACS-sub017/internal/repository"
	"github.com/JoshuaRamirez/ACS-sub017/internal/worker"
)

var (
	workerTenant string
	workerListen string
	workerDB     string
)

var workerCmd = &cobra.Command{
	Use:    "worker",
	Short:  "Run a single tenant worker",
	Hidden: true,
	Long: `Runs one tenant's worker process. Normally spawned by the supervisor, not
invoked by hand. The worker restores its tenant's graph from the database,
serves the tenant's RPC procedures, and snapshots the graph after each
applied mutation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var repo repository.SnapshotRepository
		if workerDB != "" {
			db, err := bunx.NewDB(workerDB)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer bunx.Close(db)

			// Each tenant database is exclusive to this worker, so migrations
			// run unconditionally at startup.
			migrator := migrate.NewMigrator(db, migrations.Migrations)
			if err := migrator.Init(cmd.Context()); err != nil {
				return fmt.Errorf("failed to initialize migrator: %w", err)
			}
			if _, err := migrator.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			repo = repository.NewBunSnapshotRepository(db, workerTenant)
		}

		w, err := worker.New(workerTenant, repo)
		if err != nil {
			return fmt.Errorf("failed to start worker: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return w.Run(ctx, workerListen)
	},
}

func init() {
	workerCmd.Flags().StringVar(&workerTenant, "tenant", "", "Tenant id this worker serves")
	workerCmd.Flags().StringVar(&workerListen, "listen", "127.0.0.1:0", "Address to listen on")
	workerCmd.Flags().StringVar(&workerDB, "db", "", "Database DSN or SQLite path (empty runs in memory)")
	_ = workerCmd.MarkFlagRequired("tenant")

	rootCmd.AddCommand(workerCmd)
}
