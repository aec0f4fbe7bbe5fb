package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/septivank/energy-insight-engine/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

const lifecycleTimeout = 30 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reading ingest worker and the ops server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	opts := []fx.Option{
		coreModule(cfg),
		fx.Invoke(ProvideOpsServer),
	}
	if cfg.RabbitMQ.Enabled {
		opts = append(opts,
			fx.Provide(
				ProvideAnomalyDetector,
				ProvideValidator,
				ProvideProcessorService,
			),
			fx.Invoke(startWorker),
		)
	}
	app := fx.New(opts...)

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(context.Background(), lifecycleTimeout)
	defer startCancel()

	if err := app.Start(startCtx); err != nil {
		if errors.Is(startCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("application start timeout after %s, a dependency (database or RabbitMQ) is probably unreachable: %w", lifecycleTimeout, err)
		}
		return err
	}

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), lifecycleTimeout)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		return fmt.Errorf("error stopping app: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the schema and seed the tip catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, d deps) (any, error) {
			if err := d.Backend.Migrate(ctx); err != nil {
				return nil, err
			}
			d.Logger.Info("migrations applied")
			return map[string]string{"status": "migrated"}, nil
		})
	},
}
