package schedule

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pyrestack/pyre/internal/di"
	"github.com/pyrestack/pyre/pkg/scheduler"
	"github.com/pyrestack/pyre/pkg/types"
)

// NewAddCommand creates the schedule add command.
func NewAddCommand() *cobra.Command {
	var (
		input       string
		description string
		inactive    bool
	)

	cmd := &cobra.Command{
		Use:   "add [function] [cron]",
		Short: "Create a cron schedule for a function",
		Long: `Create a cron schedule for a function.

The expression uses the five-field form (minute, hour, day-of-month,
month, day-of-week). The function is referenced by name; deleting the
function later leaves the schedule in place. New schedules are active
unless --inactive is given. The daemon arms the schedule on its next
start.`,
		Example: `  # Every five minutes
  pyre schedule add greet "*/5 * * * *"

  # Daily at 06:30 with an input payload
  pyre schedule add report "30 6 * * *" --input '{"period": "daily"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload json.RawMessage
			if input != "" {
				if !json.Valid([]byte(input)) {
					return fmt.Errorf("input is not valid JSON")
				}
				payload = json.RawMessage(input)
			}

			rt, err := di.OpenRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			sched := scheduler.New(rt.Config.Paths.SchedulesFile, rt.Engine, rt.Logger)
			created, err := sched.Add(types.ScheduleSpec{
				FunctionName:   args[0],
				CronExpression: args[1],
				Active:         !inactive,
				Input:          payload,
				Description:    description,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Schedule %d created (%s: %s)\n", created.ID, created.FunctionName, created.CronExpression)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON input payload passed to every tick")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Free-form description")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Create the schedule without arming it")
	return cmd
}
