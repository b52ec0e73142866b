package domain

import (
	"errors"
	"fmt"
)

// ErrorCode is the closed set of failure categories the service produces.
// Transport-level status codes are derived from the code at the API
// boundary only.
type ErrorCode string

const (
	CodeValidation      ErrorCode = "validation"
	CodeSessionNotFound ErrorCode = "session_not_found"
	CodeForbidden       ErrorCode = "forbidden"
	CodeThreadCreation  ErrorCode = "thread_creation"
	CodeAssistantCall   ErrorCode = "assistant_call"
	CodeRunFailed       ErrorCode = "run_failed"
	CodePersistence     ErrorCode = "persistence"
	CodeRateLimited     ErrorCode = "rate_limited"
	CodeInternal        ErrorCode = "internal"
)

// Error is a tagged error carrying the failure category and the
// operation that produced it.
type Error struct {
	Code ErrorCode
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E wraps err with a code and operation name.
func E(code ErrorCode, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// Errorf wraps a formatted message with a code and operation name.
func Errorf(code ErrorCode, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Err: fmt.Errorf(format, args...)}
}

// CodeOf extracts the error code, defaulting to CodeInternal for
// untagged errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
