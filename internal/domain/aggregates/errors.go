package aggregates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode standardizes workflow failure semantics across engines.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeForbidden          ErrorCode = "forbidden"
	CodeNotFound           ErrorCode = "not_found"
	CodeConflict           ErrorCode = "conflict"
	CodeEmptyTransfer      ErrorCode = "empty_transfer"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"
)

// Error is the canonical engine error wrapper.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with a code.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

func Validation(op, message string) error {
	return NewError(CodeValidation, op, message, nil)
}

func Unauthorized(op, message string) error {
	return NewError(CodeUnauthorized, op, message, nil)
}

func Forbidden(op, message string) error {
	return NewError(CodeForbidden, op, message, nil)
}

func NotFound(op, message string) error {
	return NewError(CodeNotFound, op, message, nil)
}

func EmptyTransfer(op, message string) error {
	return NewError(CodeEmptyTransfer, op, message, nil)
}

// IsCode checks whether err (or a wrapped err) carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return false
	}
	return aggErr.Code == code
}

// CodeOf extracts the code when available.
func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Code
}

// MessageOf returns the human readable message without op/code decoration.
func MessageOf(err error) string {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		if err == nil {
			return ""
		}
		return err.Error()
	}
	if aggErr.Message != "" {
		return aggErr.Message
	}
	return string(aggErr.Code)
}
