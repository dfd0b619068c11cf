package schedule

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pyrestack/pyre/internal/di"
	"github.com/pyrestack/pyre/pkg/scheduler"
)

// NewDeactivateCommand creates the schedule deactivate command.
func NewDeactivateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate [id]",
		Short: "Mark a schedule inactive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			rt, err := di.OpenRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			sched := scheduler.New(rt.Config.Paths.SchedulesFile, rt.Engine, rt.Logger)
			if err := sched.Deactivate(id); err != nil {
				return err
			}
			fmt.Printf("Schedule %d deactivated\n", id)
			return nil
		},
	}
}
