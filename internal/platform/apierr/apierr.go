package apierr

import (
	"errors"
	"fmt"
	"net/http"

	domainagg "github.com/charpstar/pipeline-backend/internal/domain/aggregates"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

const persistenceFailureMessage = "persistence failure"

// FromError maps engine errors onto HTTP status + code. Anything without a
// recognised code is reported as a persistence failure without leaking the cause.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	code := domainagg.CodeOf(err)
	msg := errors.New(domainagg.MessageOf(err))
	switch code {
	case domainagg.CodeValidation, domainagg.CodeEmptyTransfer:
		return New(http.StatusBadRequest, string(code), msg)
	case domainagg.CodeUnauthorized:
		return New(http.StatusUnauthorized, string(code), msg)
	case domainagg.CodeForbidden:
		return New(http.StatusForbidden, string(code), msg)
	case domainagg.CodeNotFound:
		return New(http.StatusNotFound, string(code), msg)
	case domainagg.CodeConflict:
		return New(http.StatusConflict, string(code), msg)
	default:
		return New(http.StatusInternalServerError, "persistence_failure", errors.New(persistenceFailureMessage))
	}
}
