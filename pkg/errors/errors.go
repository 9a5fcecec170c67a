package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Reason  string    `json:"reason,omitempty"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error code onto an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrInvalidCredentials, ErrInvalidToken, ErrExpiredToken, ErrMissingToken:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Common error codes
const (
	ErrValidation ErrorCode = iota + 1000
	ErrInvalidCredentials
	ErrInvalidToken
	ErrExpiredToken
	ErrMissingToken
	ErrForbidden
	ErrNotFound
	ErrConflict
	ErrSyncFailure
	ErrInternal
)

// Machine readable reasons for token failures.
const (
	ReasonInvalidToken = "invalid_token"
	ReasonTokenExpired = "token_expired"
	ReasonMissingToken = "missing_token"
)

func Validation(message string, err error) *AppError {
	return &AppError{Code: ErrValidation, Message: message, Err: err}
}

func InvalidCredentials() *AppError {
	return &AppError{Code: ErrInvalidCredentials, Message: "incorrect email or password"}
}

func InvalidToken(err error) *AppError {
	return &AppError{Code: ErrInvalidToken, Message: "invalid token", Reason: ReasonInvalidToken, Err: err}
}

func ExpiredToken(err error) *AppError {
	return &AppError{Code: ErrExpiredToken, Message: "token has expired", Reason: ReasonTokenExpired, Err: err}
}

func MissingToken() *AppError {
	return &AppError{Code: ErrMissingToken, Message: "authorization token is required", Reason: ReasonMissingToken}
}

func Forbidden(message string) *AppError {
	if message == "" {
		message = "access denied"
	}
	return &AppError{Code: ErrForbidden, Message: message}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{Code: ErrNotFound, Message: fmt.Sprintf("%s not found", resource), Err: err}
}

func Conflict(message string, err error) *AppError {
	return &AppError{Code: ErrConflict, Message: message, Err: err}
}

// SyncFailure wraps a graph write that failed after the canonical write succeeded.
func SyncFailure(operation string, err error) *AppError {
	return &AppError{Code: ErrSyncFailure, Message: fmt.Sprintf("graph sync %s failed", operation), Err: err}
}

func Internal(err error) *AppError {
	return &AppError{Code: ErrInternal, Message: "internal server error", Err: err}
}

// CodeOf returns the code of the first AppError in the chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}
