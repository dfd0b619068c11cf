package types

import (
	"encoding/json"
)

// Exit codes reported in ExecutionResult. User code's own exit code is
// passed through unchanged; these cover the host-side cases.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
	ExitCodeTimeout = 124
)

// ExecutionResult is the structured outcome of one invocation. It is
// transient: nothing here is persisted beyond the invocation log.
type ExecutionResult struct {
	Success  bool            `json:"success"`
	Output   string          `json:"output"`
	Error    string          `json:"error,omitempty"`
	ExitCode int             `json:"exitCode"`
	Value    json.RawMessage `json:"value,omitempty"`
}

// NewExecutionError builds a host-side failure result (missing
// artifact, spawn failure). Execution errors are always returned as a
// result, never raised to the caller.
func NewExecutionError(msg string) *ExecutionResult {
	return &ExecutionResult{
		Success:  false,
		Error:    msg,
		ExitCode: ExitCodeError,
	}
}
