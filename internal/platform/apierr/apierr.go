package apierr

import (
	"errors"
	"fmt"
	"net/http"

	domainagg "github.com/yungbote/integration-engine/internal/domain/aggregates"
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

// FromAggregate maps an aggregate write failure onto an HTTP status and code.
func FromAggregate(err error) *Error {
	if err == nil {
		return nil
	}
	var api *Error
	if errors.As(err, &api) {
		return api
	}
	code := domainagg.CodeOf(err)
	switch code {
	case domainagg.CodeValidation:
		return New(http.StatusBadRequest, string(code), err)
	case domainagg.CodeNotFound:
		return New(http.StatusNotFound, string(code), err)
	case domainagg.CodeConflict, domainagg.CodeInvariantViolation:
		return New(http.StatusConflict, string(code), err)
	case domainagg.CodePreconditionFailed:
		return New(http.StatusPreconditionFailed, string(code), err)
	case domainagg.CodeRetryable:
		return New(http.StatusServiceUnavailable, string(code), err)
	default:
		return New(http.StatusInternalServerError, "internal", err)
	}
}
