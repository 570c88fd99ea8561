package a2a

import "errors"

// Error codes carried in {"error":{"code":...}} bodies and client results.
const (
	CodeInvalidMessage          = "InvalidMessageError"
	CodeTaskNotFound            = "TaskNotFoundError"
	CodeUnsupportedOperation    = "UnsupportedOperationError"
	CodeContentTypeNotSupported = "ContentTypeNotSupportedError"
	CodeInternal                = "InternalError"

	CodeTimeout          = "TimeoutError"
	CodeRequestFailed    = "RequestFailedError"
	CodeAgentUnavailable = "AgentUnavailableError"
)

// Error is a protocol or transport error that crosses a process boundary.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// ErrorCode returns the code of err if it wraps an *Error, or "".
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ValidationError describes the first structural violation found in a
// protocol entity.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
