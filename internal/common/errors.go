package common

import (
	"errors"
	"net/http"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// ValidationError rejects a request before any mutation happens.
func ValidationError(message string, err error) *AppError {
	return NewAppError("VALIDATION", message, http.StatusBadRequest, err)
}

// NotFoundError signals a missing or inaccessible resource.
func NotFoundError(message string, err error) *AppError {
	return NewAppError("NOT_FOUND", message, http.StatusNotFound, err)
}

// ConflictError signals a guard rejection; the attempted mutation was rolled back.
func ConflictError(code, message string, err error) *AppError {
	if code == "" {
		code = "CONFLICT"
	}
	return NewAppError(code, message, http.StatusConflict, err)
}
