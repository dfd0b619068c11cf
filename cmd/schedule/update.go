package schedule

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pyrestack/pyre/internal/di"
	pyreerrors "github.com/pyrestack/pyre/pkg/errors"
	"github.com/pyrestack/pyre/pkg/scheduler"
	"github.com/pyrestack/pyre/pkg/types"
)

// NewUpdateCommand creates the schedule update command. Activation is
// a separate explicit transition; update covers the record's fields.
func NewUpdateCommand() *cobra.Command {
	var (
		functionName string
		cronExpr     string
		input        string
		description  string
	)

	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Update a schedule's fields",
		Long: `Update a schedule's fields. Only the given flags change; the
active flag is managed through activate/deactivate.`,
		Example: `  pyre schedule update 1724212800000 --cron "0 * * * *"`,
		Args:    cobra.ExactArgs(1),
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

			schedules, err := sched.List()
			if err != nil {
				return err
			}
			var current *types.Schedule
			for i := range schedules {
				if schedules[i].ID == id {
					current = &schedules[i]
					break
				}
			}
			if current == nil {
				return pyreerrors.ErrScheduleNotFound
			}

			spec := types.ScheduleSpec{
				FunctionName:   current.FunctionName,
				CronExpression: current.CronExpression,
				Active:         current.Active,
				Input:          current.Input,
				Description:    current.Description,
			}
			if cmd.Flags().Changed("function") {
				spec.FunctionName = functionName
			}
			if cmd.Flags().Changed("cron") {
				spec.CronExpression = cronExpr
			}
			if cmd.Flags().Changed("input") {
				if input != "" && !json.Valid([]byte(input)) {
					return fmt.Errorf("input is not valid JSON")
				}
				spec.Input = json.RawMessage(input)
			}
			if cmd.Flags().Changed("description") {
				spec.Description = description
			}

			updated, err := sched.Update(id, spec)
			if err != nil {
				return err
			}
			fmt.Printf("Schedule %d updated (%s: %s)\n", updated.ID, updated.FunctionName, updated.CronExpression)
			return nil
		},
	}

	cmd.Flags().StringVar(&functionName, "function", "", "Function name")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "Cron expression")
	cmd.Flags().StringVar(&input, "input", "", "JSON input payload")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	return cmd
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid schedule id %q", arg)
	}
	return id, nil
}
