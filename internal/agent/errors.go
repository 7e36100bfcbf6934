// internal/agent/errors.go
package agent

// ErrorCode is a string type used for structured error reporting from the executor.
type ErrorCode string

const (
	// -- General Execution Errors --
	ErrCodeExecutionFailure  ErrorCode = "EXECUTION_FAILURE"
	ErrCodeInvalidParameters ErrorCode = "INVALID_PARAMETERS"
	ErrCodeUnknownAction     ErrorCode = "UNKNOWN_ACTION_TYPE"
	ErrCodeCancelled         ErrorCode = "CANCELLED"

	// -- Targeting Errors --
	// ErrCodeTargetNotFound means neither text nor visual search located the target.
	ErrCodeTargetNotFound ErrorCode = "TARGET_NOT_FOUND"
	// ErrCodePerceptionFailure means no usable frame could be captured or recognized.
	ErrCodePerceptionFailure ErrorCode = "PERCEPTION_FAILURE"

	// -- Device Errors --
	ErrCodeTransportFailure ErrorCode = "TRANSPORT_FAILURE"

	// -- Internal System Errors --
	ErrCodeExecutorPanic ErrorCode = "EXECUTOR_PANIC"
)
