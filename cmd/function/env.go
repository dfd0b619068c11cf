package function

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pyrestack/pyre/internal/di"
)

// NewEnvCommand creates the function env command group.
func NewEnvCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage a function's persisted environment variables",
	}
	cmd.AddCommand(newEnvGetCommand())
	cmd.AddCommand(newEnvSetCommand())
	return cmd
}

func newEnvGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get [name]",
		Short: "Print a function's environment variables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := di.OpenRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			env, err := rt.Store.Env(args[0])
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(env))
			for k := range env {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("%s=%s\n", k, env[k])
			}
			return nil
		},
	}
}

func newEnvSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set [name] [KEY=VALUE]...",
		Short: "Replace a function's environment variables",
		Long: `Replace a function's persisted environment variables.

The full set is replaced on every call; variables not listed are
dropped. Values may contain '='; keys may not.`,
		Example: `  pyre function env set greet GREETING=hello REGION=eu`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := make(map[string]string, len(args)-1)
			for _, kv := range args[1:] {
				parts := splitKeyValue(kv)
				if len(parts) != 2 {
					return fmt.Errorf("invalid variable %q (expected KEY=VALUE)", kv)
				}
				env[parts[0]] = parts[1]
			}

			rt, err := di.OpenRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.Store.SetEnv(args[0], env); err != nil {
				return err
			}
			fmt.Printf("Environment updated for %s (%d variables)\n", args[0], len(env))
			return nil
		},
	}
}

// splitKeyValue splits "key=value" on the first '=' so values may
// contain '=' themselves.
func splitKeyValue(input string) []string {
	return strings.SplitN(input, "=", 2)
}
