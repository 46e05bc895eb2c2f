// Package toolerrors provides a structured error type for tool invocation
// failures. ToolError keeps a chain of ToolErrors (via Unwrap) so a
// tool_error's causes can still be walked with errors.As(*ToolError) by the
// agent actor, while remaining a plain string once rendered into a
// ToolResult's Content field. Causes that are not ToolErrors are copied into
// the chain by message only, so errors.Is against their original values
// does not match.
package toolerrors

import (
	"errors"
	"fmt"
)

// ToolError represents a structured tool failure. Tool errors may nest via
// Cause to retain diagnostics across a retry or an agent-as-tool call chain,
// per the tool_error kind in SPEC_FULL.md §7: tool errors are observable to
// the LLM so it can self-correct, unlike infrastructure errors which
// surface directly to the operator.
type ToolError struct {
	Message string
	Cause   *ToolError
}

// New constructs a ToolError with the given message.
func New(message string) *ToolError {
	if message == "" {
		message = "tool error"
	}
	return &ToolError{Message: message}
}

// Errorf formats a ToolError message.
func Errorf(format string, args ...any) *ToolError {
	return New(fmt.Sprintf(format, args...))
}

// NewWithCause constructs a ToolError whose Cause is FromError(cause): the
// cause's messages are kept as a ToolError chain, but the original error
// values and types are not.
func NewWithCause(message string, cause error) *ToolError {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &ToolError{Message: message, Cause: FromError(cause)}
}

// FromError converts an arbitrary error into a ToolError chain.
func FromError(err error) *ToolError {
	if err == nil {
		return nil
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{Message: err.Error(), Cause: FromError(errors.Unwrap(err))}
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap supports errors.Is/errors.As over the Cause chain.
func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}
