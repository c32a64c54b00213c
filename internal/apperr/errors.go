package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an error that knows which HTTP status it should be reported with.
type Error struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
	// Raw carries the upstream body when it could not be understood.
	Raw string `json:"raw,omitempty"`
	// UpstreamStatus is the status code returned by an external service.
	UpstreamStatus int   `json:"upstream_status,omitempty"`
	Err            error `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NewBadRequest(format string, args ...any) *Error {
	return &Error{Code: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func NewInternal(format string, args ...any) *Error {
	return &Error{Code: http.StatusInternalServerError, Message: fmt.Sprintf(format, args...)}
}

func NewBadGateway(format string, args ...any) *Error {
	return &Error{Code: http.StatusBadGateway, Message: fmt.Sprintf(format, args...)}
}

func NewGatewayTimeout(format string, args ...any) *Error {
	return &Error{Code: http.StatusGatewayTimeout, Message: fmt.Sprintf(format, args...)}
}

func NewNotFound(format string, args ...any) *Error {
	return &Error{Code: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewConflict(format string, args ...any) *Error {
	return &Error{Code: http.StatusConflict, Message: fmt.Sprintf(format, args...)}
}

func NewUnavailable(format string, args ...any) *Error {
	return &Error{Code: http.StatusServiceUnavailable, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to e and returns it.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// Status returns the HTTP status for err, 500 for anything that is not an *Error.
func Status(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
