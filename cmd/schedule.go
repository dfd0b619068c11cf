package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pyrestack/pyre/cmd/schedule"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage cron schedules",
}

func init() {
	scheduleCmd.AddCommand(schedule.NewAddCommand())
	scheduleCmd.AddCommand(schedule.NewListCommand())
	scheduleCmd.AddCommand(schedule.NewUpdateCommand())
	scheduleCmd.AddCommand(schedule.NewDeleteCommand())
	scheduleCmd.AddCommand(schedule.NewActivateCommand())
	scheduleCmd.AddCommand(schedule.NewDeactivateCommand())
	rootCmd.AddCommand(scheduleCmd)
}
