package schedule

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pyrestack/pyre/internal/di"
	"github.com/pyrestack/pyre/pkg/scheduler"
)

// NewListCommand creates the schedule list command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List persisted schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := di.OpenRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			sched := scheduler.New(rt.Config.Paths.SchedulesFile, rt.Engine, rt.Logger)
			schedules, err := sched.List()
			if err != nil {
				return err
			}

			if len(schedules) == 0 {
				fmt.Println("No schedules")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFUNCTION\tCRON\tACTIVE\tDESCRIPTION")
			for _, s := range schedules {
				fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\n",
					s.ID, s.FunctionName, s.CronExpression, s.Active, s.Description)
			}
			return w.Flush()
		},
	}
}
