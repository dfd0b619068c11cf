package errors

import (
	"errors"
	"fmt"
)

// Domain enumerates the error domains of the system.
type Domain string

const (
	DomainValidation  Domain = "validation"
	DomainCompile     Domain = "compile"
	DomainDependency  Domain = "dependency"
	DomainExecution   Domain = "execution"
	DomainPersistence Domain = "persistence"
)

// Code enumerates error codes within a domain.
type Code string

// Validation error codes.
const (
	CodeUnsupportedExtension Code = "unsupported_extension"
	CodeInvalidName          Code = "invalid_name"
	CodeInvalidCron          Code = "invalid_cron"
	CodeInvalidSpec          Code = "invalid_spec"
)

// Compile error codes.
const (
	CodeCompileFailed Code = "compile_failed"
)

// Dependency error codes.
const (
	CodeInstallFailed Code = "install_failed"
)

// Execution error codes.
const (
	CodeFunctionNotFound Code = "function_not_found"
	CodeSpawnFailed      Code = "spawn_failed"
	CodeTimeout          Code = "timeout"
	CodeNoEntryPoint     Code = "no_entry_point"
)

// Persistence error codes.
const (
	CodeReadFailed  Code = "read_failed"
	CodeWriteFailed Code = "write_failed"
)

// DomainError is a failure tagged with its domain and code so callers
// can branch on the taxonomy instead of matching message text.
type DomainError struct {
	ErrDomain Domain
	ErrCode   Code
	Message   string

	// Function is the function name the error relates to, if any.
	Function string

	// Detail carries captured diagnostic output (compiler errors,
	// installer output) produced before the failure point.
	Detail string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s:%s] %s", e.ErrDomain, e.ErrCode, e.Message)
	if e.Function != "" {
		msg = fmt.Sprintf("%s (function: %s)", msg, e.Function)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// New creates a DomainError.
func New(domain Domain, code Code, message string) *DomainError {
	return &DomainError{
		ErrDomain: domain,
		ErrCode:   code,
		Message:   message,
	}
}

// Wrap creates a DomainError around an underlying cause.
func Wrap(domain Domain, code Code, message string, err error) *DomainError {
	return &DomainError{
		ErrDomain: domain,
		ErrCode:   code,
		Message:   message,
		Cause:     err,
	}
}

// WithFunction attaches the function name.
func (e *DomainError) WithFunction(name string) *DomainError {
	e.Function = name
	return e
}

// WithDetail attaches captured diagnostic output.
func (e *DomainError) WithDetail(detail string) *DomainError {
	e.Detail = detail
	return e
}

// Is checks whether err is a DomainError with the given domain and code.
func Is(err error, domain Domain, code Code) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.ErrDomain == domain && de.ErrCode == code
	}
	return false
}

// InDomain checks whether err belongs to the given domain.
func InDomain(err error, domain Domain) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.ErrDomain == domain
	}
	return false
}

// Common sentinel errors.
var (
	ErrFunctionNotFound     = New(DomainExecution, CodeFunctionNotFound, "function not found")
	ErrUnsupportedExtension = New(DomainValidation, CodeUnsupportedExtension, "unsupported file extension")
	ErrExecutionTimeout     = New(DomainExecution, CodeTimeout, "execution timed out")
	ErrScheduleNotFound     = errors.New("schedule not found")
)
