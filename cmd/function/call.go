package function

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pyrestack/pyre/internal/di"
)

// NewCallCommand creates the function call command.
func NewCallCommand() *cobra.Command {
	var (
		payload string
		envVars []string
	)

	cmd := &cobra.Command{
		Use:   "call [name]",
		Short: "Invoke a function once",
		Long: `Invoke a function in a fresh node child process and print the
structured result.

The payload must be JSON; it is handed to the function's entry point
(default export, handler, or main — first invocable wins). Caller
environment variables override the process defaults and are themselves
overridden by the function's persisted environment. Exit code 124
means the invocation hit the wall-clock timeout.`,
		Example: `  # Call with a payload
  pyre function call greet --payload '{"name": "World"}'

  # Call with extra environment variables
  pyre function call greet --env DEBUG=1 --env REGION=eu`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input json.RawMessage
			if payload != "" {
				if !json.Valid([]byte(payload)) {
					return fmt.Errorf("payload is not valid JSON")
				}
				input = json.RawMessage(payload)
			}

			callerEnv := make(map[string]string, len(envVars))
			for _, kv := range envVars {
				parts := splitKeyValue(kv)
				if len(parts) != 2 {
					return fmt.Errorf("invalid --env value %q (expected KEY=VALUE)", kv)
				}
				callerEnv[parts[0]] = parts[1]
			}

			rt, err := di.OpenRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			result := rt.Engine.Invoke(context.Background(), args[0], input, callerEnv)

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))

			if !result.Success {
				os.Exit(result.ExitCode)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&payload, "payload", "p", "", "JSON input payload")
	cmd.Flags().StringArrayVarP(&envVars, "env", "e", nil, "Environment variable (KEY=VALUE), repeatable")
	return cmd
}
