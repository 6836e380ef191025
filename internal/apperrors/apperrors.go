// Package apperrors carries request-scoped failures from the service layer
// to the HTTP boundary, where they render as the uniform JSON envelope
// {"success":false,"message":...,"statusCode":...}.
package apperrors

import (
	"errors"
	"net/http"
)

type ApiError struct {
	StatusCode int
	Message    string
}

func (e *ApiError) Error() string {
	return e.Message
}

func New(statusCode int, message string) *ApiError {
	return &ApiError{StatusCode: statusCode, Message: message}
}

func BadRequest(message string) *ApiError {
	return New(http.StatusBadRequest, message)
}

func Unauthorized(message string) *ApiError {
	return New(http.StatusUnauthorized, message)
}

func Forbidden(message string) *ApiError {
	return New(http.StatusForbidden, message)
}

func NotFound(message string) *ApiError {
	return New(http.StatusNotFound, message)
}

func Internal(message string) *ApiError {
	return New(http.StatusInternalServerError, message)
}

// StatusOf resolves the HTTP status for any error; non-ApiError values are
// treated as unexpected internal failures.
func StatusOf(err error) int {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return http.StatusInternalServerError
}

// MessageOf returns the client-facing message for err. Unexpected errors are
// masked so internals never leak into responses.
func MessageOf(err error) string {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "Internal Server Error"
}
