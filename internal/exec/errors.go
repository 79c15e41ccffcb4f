package exec

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode categorizes execution failures.
type ErrorCode string

const (
	// ErrCodeConnectFailed indicates no connection could be acquired.
	ErrCodeConnectFailed ErrorCode = "CONNECT_FAILED"

	// ErrCodeExecutionFailed indicates the driver rejected or failed the call.
	ErrCodeExecutionFailed ErrorCode = "EXECUTION_FAILED"

	// ErrCodeMappingFailed indicates a row mapper rejected a row.
	ErrCodeMappingFailed ErrorCode = "MAPPING_FAILED"

	// ErrCodeCancelled indicates the caller's context ended before the call
	// produced a cursor.
	ErrCodeCancelled ErrorCode = "CANCELLED"
)

// ExecutionError attributes a driver failure to the procedure being called.
// The original cause is reachable through errors.Is and errors.As.
type ExecutionError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Procedure is the qualified name of the failing procedure.
	Procedure string

	// Err is the underlying cause.
	Err error
}

// Attribute wraps err in an ExecutionError for procedure unless err is
// already one. Cancellation causes are classified as ErrCodeCancelled.
func Attribute(code ErrorCode, procedure string, err error) error {
	if err == nil {
		return nil
	}
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		code = ErrCodeCancelled
	}
	return newError(code, procedure, err)
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Procedure, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error { return e.Err }

// IsExecutionError returns true if err is, or wraps, an ExecutionError.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}

// IsCancelled returns true if err is an ExecutionError caused by
// cancellation.
func IsCancelled(err error) bool {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeCancelled
	}
	return false
}

// IsConnectFailed returns true if err is an ExecutionError raised while
// acquiring a connection.
func IsConnectFailed(err error) bool {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeConnectFailed
	}
	return false
}

// IsMappingFailed returns true if err is an ExecutionError raised by a row
// mapper.
func IsMappingFailed(err error) bool {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeMappingFailed
	}
	return false
}

func newError(code ErrorCode, procedure string, err error) *ExecutionError {
	return &ExecutionError{Code: code, Procedure: procedure, Err: err}
}
