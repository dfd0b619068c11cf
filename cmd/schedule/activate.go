package schedule

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pyrestack/pyre/internal/di"
	"github.com/pyrestack/pyre/pkg/scheduler"
)

// NewActivateCommand creates the schedule activate command.
func NewActivateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "activate [id]",
		Short: "Mark a schedule active",
		Long: `Mark a schedule active. The persisted flag is flipped
immediately; the daemon arms the timer from the file on its next
start.`,
		Args: cobra.ExactArgs(1),
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
			if err := sched.Activate(id); err != nil {
				return err
			}
			fmt.Printf("Schedule %d activated\n", id)
			return nil
		},
	}
}
