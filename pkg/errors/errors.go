// Package errors defines the error taxonomy rendered to API clients.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an AppError independently of its code and message.
type Kind string

const (
	KindInvalidInput       Kind = "invalid_input"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindRateLimited        Kind = "rate_limited"
	// KindInfrastructure marks unexpected storage or runtime failures. Their cause is logged, never rendered.
	KindInfrastructure Kind = "infrastructure"
)

// AppError is a classified error that can be rendered to API consumers.
type AppError struct {
	Kind       Kind              `json:"-"`
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
	StatusCode int               `json:"-"`
	Internal   error             `json:"-"`
}

func (e *AppError) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.Internal != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	default:
		return e.Message
	}
}

// Unwrap exposes the internal cause.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is matches by code so copies produced by the With* helpers still match their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// WithInternal returns a copy carrying cause.
func (e *AppError) WithInternal(cause error) *AppError {
	if e == nil {
		return nil
	}
	cpy := *e
	cpy.Internal = cause
	return &cpy
}

// WithMessage returns a copy with a caller supplied client message.
func (e *AppError) WithMessage(message string) *AppError {
	if e == nil {
		return nil
	}
	cpy := *e
	cpy.Message = message
	return &cpy
}

// WithFields returns a copy carrying per-field details, typically validation failures.
func (e *AppError) WithFields(fields map[string]string) *AppError {
	if e == nil {
		return nil
	}
	cpy := *e
	if len(fields) > 0 {
		cpy.Fields = make(map[string]string, len(fields))
		for k, v := range fields {
			cpy.Fields[k] = v
		}
	}
	return &cpy
}

func define(kind Kind, code string, status int, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message, StatusCode: status}
}

var (
	ErrBadRequest         = define(KindInvalidInput, "BAD_REQUEST", http.StatusBadRequest, "Invalid request")
	ErrInvalidCredentials = define(KindInvalidCredentials, "INVALID_CREDENTIALS", http.StatusUnauthorized, "Invalid email or password")
	ErrUnauthorized       = define(KindUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized, "Authentication required")
	ErrForbidden          = define(KindForbidden, "FORBIDDEN", http.StatusForbidden, "Permission denied")
	ErrNotFound           = define(KindNotFound, "NOT_FOUND", http.StatusNotFound, "Resource not found")
	ErrMethodNotAllowed   = define(KindNotFound, "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed, "Method not allowed")
	ErrConflict           = define(KindConflict, "CONFLICT", http.StatusConflict, "Resource already exists")
	ErrRateLimit          = define(KindRateLimited, "RATE_LIMIT_EXCEEDED", http.StatusTooManyRequests, "Too many requests, please slow down")
	ErrInternalServer     = define(KindInfrastructure, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError, "Internal server error")
)

// New builds an application error. The kind is derived from statusCode.
func New(code, message string, statusCode int) *AppError {
	return define(kindForStatus(statusCode), code, statusCode, message)
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 400 && status < 500:
		return KindInvalidInput
	default:
		return KindInfrastructure
	}
}

// FromError returns the AppError in err's chain. Anything else is an infrastructure failure.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServer.WithInternal(err)
}

// KindOf classifies err. It returns an empty kind for nil.
func KindOf(err error) Kind {
	if appErr := FromError(err); appErr != nil {
		return appErr.Kind
	}
	return ""
}

// NewConflict reports a uniqueness violation with a caller supplied message.
func NewConflict(message string) *AppError {
	return ErrConflict.WithMessage(message)
}

// NewBadRequest reports invalid input with a caller supplied message.
func NewBadRequest(message string) *AppError {
	return ErrBadRequest.WithMessage(message)
}
