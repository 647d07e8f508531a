package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Connection-level rejections. A caller that receives one of these never
// gets a usable session.

func AuthRequired() *AppError {
	return &AppError{
		Code:    "AUTH_REQUIRED",
		Message: "Authentication credential is required",
		Status:  http.StatusUnauthorized,
	}
}

func InvalidCredential(err error) *AppError {
	return &AppError{
		Code:    "INVALID_CREDENTIAL",
		Message: "Credential is invalid or expired",
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

func UserUnavailable(err error) *AppError {
	return &AppError{
		Code:    "USER_UNAVAILABLE",
		Message: "User not found or inactive",
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

// Per-event failures. These are caught at the event boundary and turned into
// a structured reply without terminating the connection.

func AccessDenied(message string) *AppError {
	return &AppError{
		Code:    "ACCESS_DENIED",
		Message: message,
		Status:  http.StatusForbidden,
	}
}

func RoomNotFound(err error) *AppError {
	return &AppError{
		Code:    "ROOM_NOT_FOUND",
		Message: "Chat room not found",
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func InvalidContent(message string) *AppError {
	return &AppError{
		Code:    "INVALID_CONTENT",
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// RateLimited is retryable, distinct from validation and access errors.
func RateLimited() *AppError {
	return &AppError{
		Code:    "RATE_LIMITED",
		Message: "Too many messages, slow down and retry",
		Status:  http.StatusTooManyRequests,
	}
}

func PersistenceFailure(message string, err error) *AppError {
	return &AppError{
		Code:    "PERSISTENCE_FAILURE",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the taxonomy code of err, or INTERNAL_ERROR for anything
// that is not an AppError.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "INTERNAL_ERROR"
}
