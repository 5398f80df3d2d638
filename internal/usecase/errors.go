package usecase

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorNotFound     ErrorCode = "NOT_FOUND"
	ErrorUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrorUpstream     ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"
)

// Error is the classified failure returned by every service. Message is safe
// to show to the caller; Reason is a stable machine-readable tag for logs.
type Error struct {
	Code    ErrorCode
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PublicMessage is the text placed in the error envelope.
func (e *Error) PublicMessage() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Code {
	case ErrorInvalidInput:
		return "Invalid request"
	case ErrorNotFound:
		return "Not found"
	case ErrorUpstream:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "Upstream service error"
	default:
		return "Internal server error"
	}
}

func newError(code ErrorCode, reason, message string, err error) *Error {
	return &Error{Code: code, Reason: reason, Message: message, Err: err}
}

// AsError classifies err, treating anything untyped as an internal error.
func AsError(err error) *Error {
	var ue *Error
	if errors.As(err, &ue) {
		return ue
	}
	return newError(ErrorInternal, "unclassified", "", err)
}
