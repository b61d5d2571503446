package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	InvalidArgument Code = "INVALID_ARGUMENT"
	NotFound        Code = "NOT_FOUND"
	Unavailable     Code = "UNAVAILABLE"
	Timeout         Code = "TIMEOUT"
	Upstream        Code = "UPSTREAM"
	NotConfigured   Code = "NOT_CONFIGURED"
	Internal        Code = "INTERNAL"
)

var httpStatus = map[Code]int{
	InvalidArgument: http.StatusBadRequest,
	NotFound:        http.StatusNotFound,
	Unavailable:     http.StatusServiceUnavailable,
	Timeout:         http.StatusGatewayTimeout,
	Upstream:        http.StatusBadGateway,
	NotConfigured:   http.StatusServiceUnavailable,
	Internal:        http.StatusInternalServerError,
}

type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// StatusCode is the HTTP status the API answers with for this error.
func (e *Error) StatusCode() int {
	if s, ok := httpStatus[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Cause: err}
}

// From returns the *Error in err's chain, classifying bare context errors
// as timeouts and anything else as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(err, Timeout, "request timed out")
	}
	if errors.Is(err, context.Canceled) {
		return Wrap(err, Timeout, "request cancelled")
	}
	return Wrap(err, Internal, "internal error")
}

func IsCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
