// Package apperrors defines the error taxonomy shared by handlers and services.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Type categorizes an error for HTTP mapping and logging.
type Type string

const (
	TypeValidation   Type = "VALIDATION"
	TypeUnauthorized Type = "UNAUTHORIZED"
	TypeNotFound     Type = "NOT_FOUND"
	TypeConflict     Type = "CONFLICT"
	TypeExternal     Type = "EXTERNAL"
	TypeStorage      Type = "STORAGE"
	TypeInternal     Type = "INTERNAL"
)

// Error carries a category and an optional wrapped cause.
type Error struct {
	Type    Type
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a categorized error.
func New(t Type, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Wrap constructs a categorized error around a cause.
func Wrap(t Type, message string, err error) *Error {
	return &Error{Type: t, Message: message, Err: err}
}

// TypeOf returns the category of err, or TypeInternal for plain errors.
func TypeOf(err error) Type {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return TypeInternal
}

// HTTPStatus maps an error category to a response status code.
func HTTPStatus(err error) int {
	switch TypeOf(err) {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeUnauthorized:
		return http.StatusUnauthorized
	case TypeNotFound:
		return http.StatusNotFound
	case TypeConflict:
		return http.StatusConflict
	case TypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
