package types

import (
	"encoding/json"
)

// Schedule is one persisted cron registration. FunctionName is a weak
// reference: the artifact may be deleted while the schedule lives on,
// in which case each tick reports an execution error.
type Schedule struct {
	ID             int64           `json:"id"`
	FunctionName   string          `json:"function_name" validate:"required"`
	CronExpression string          `json:"cron_expression" validate:"required"`
	Active         bool            `json:"active"`
	Input          json.RawMessage `json:"input,omitempty"`
	Description    string          `json:"description,omitempty"`
}

// ScheduleSpec carries the caller-supplied fields for creating a
// schedule. The id is assigned by the scheduler.
type ScheduleSpec struct {
	FunctionName   string          `json:"function_name" validate:"required"`
	CronExpression string          `json:"cron_expression" validate:"required"`
	Active         bool            `json:"active"`
	Input          json.RawMessage `json:"input,omitempty"`
	Description    string          `json:"description,omitempty"`
}
