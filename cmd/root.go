package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	globalConfig "github.com/pyrestack/pyre/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "pyre",
	Short: "Pyre function runner",
	Long: `Pyre is a single-host JavaScript/TypeScript function runner.

It stores uploaded function files, compiles TypeScript with the
external toolchain, provisions isolated per-function npm dependencies,
and runs functions on demand or on a cron schedule inside isolated
node child processes with a wall-clock timeout.`,
	Example: `  # Upload a function
  pyre function add greet ./greet.js

  # Call it with a payload
  pyre function call greet --payload '{"name": "World"}'

  # Schedule it every five minutes
  pyre schedule add greet "*/5 * * * *" --input '{"name": "cron"}'

  # Run the scheduler daemon
  pyre serve`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalConfig.ConfigPath, "config", globalConfig.DefaultConfigPath, "Path to the config file")
	rootCmd.PersistentFlags().StringVar(&globalConfig.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}
