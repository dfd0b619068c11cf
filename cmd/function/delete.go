package function

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pyrestack/pyre/internal/di"
)

// NewDeleteCommand creates the function delete command.
func NewDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a function",
		Long: `Delete a function's source, compiled output, and environment file.

Schedules referencing the function are left in place; their ticks
report an execution error until the schedule is deleted or the
function re-uploaded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := di.OpenRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.Store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("Function %s deleted\n", args[0])
			return nil
		},
	}
}
