// Package apperr содержит ошибки бизнес-логики, которые API-слой
// транслирует в HTTP-ответы.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a business-logic failure with an HTTP status and a user-facing
// Russian message. Details carries diagnostic payload (e.g. the raw gateway
// error body) returned to the caller under "details".
type Error struct {
	Status  int
	Message string
	Details interface{}
	cause   error
}

func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

func Newf(status int, format string, args ...interface{}) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// From extracts an *Error from err, wrapping anything else as an internal
// server error so handlers never leak raw error strings to users.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{
		Status:  http.StatusInternalServerError,
		Message: "Внутренняя ошибка сервера",
		cause:   err,
	}
}
