package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/pyrestack/pyre/internal/di"
	"github.com/pyrestack/pyre/pkg/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler daemon",
	Long: `Run the pyre scheduler daemon.

The daemon reconstructs the timer registry from the persisted schedule
list, arms every active cron entry, and invokes functions on each
fire. It blocks until interrupted; schedules mutated through the CLI
are picked up on the next start.`,
	Example: `  # Run with the default config
  pyre serve

  # Run with a custom config file
  pyre serve --config /etc/pyre/config.yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := fx.New(
			di.Module,
			// Force construction of the scheduler; its lifecycle hooks
			// arm the timers.
			fx.Invoke(func(*scheduler.Scheduler) {}),
			fx.NopLogger,
			fx.StartTimeout(30*time.Second),
			fx.StopTimeout(30*time.Second),
		)

		if err := app.Start(context.Background()); err != nil {
			return fmt.Errorf("failed to start daemon: %w", err)
		}

		<-app.Done()

		if err := app.Stop(context.Background()); err != nil {
			return fmt.Errorf("error during shutdown: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
