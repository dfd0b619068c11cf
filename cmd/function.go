package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pyrestack/pyre/cmd/function"
)

var functionCmd = &cobra.Command{
	Use:     "function",
	Aliases: []string{"fn"},
	Short:   "Manage and run functions",
}

func init() {
	functionCmd.AddCommand(function.NewAddCommand())
	functionCmd.AddCommand(function.NewListCommand())
	functionCmd.AddCommand(function.NewDeleteCommand())
	functionCmd.AddCommand(function.NewCallCommand())
	functionCmd.AddCommand(function.NewEnvCommand())
	rootCmd.AddCommand(functionCmd)
}
