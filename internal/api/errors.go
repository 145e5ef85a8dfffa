package api

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the category of a backend call failure
type ErrorType string

const (
	// ErrTypeUnauthorized indicates the session is missing or expired (401)
	ErrTypeUnauthorized ErrorType = "unauthorized"

	// ErrTypeForbidden indicates the user may not touch the resource (403)
	ErrTypeForbidden ErrorType = "forbidden"

	// ErrTypeValidation indicates a rejected request carrying a detail message
	ErrTypeValidation ErrorType = "validation"

	// ErrTypeNotFound indicates a missing resource (404)
	ErrTypeNotFound ErrorType = "not_found"

	// ErrTypeServer indicates a 5xx response
	ErrTypeServer ErrorType = "server"

	// ErrTypeNetwork indicates the request never produced a response
	ErrTypeNetwork ErrorType = "network"

	// ErrTypeTimeout indicates the request deadline expired
	ErrTypeTimeout ErrorType = "timeout"

	// ErrTypeDecode indicates an unreadable response body
	ErrTypeDecode ErrorType = "decode"
)

// Error represents a failed backend call
type Error struct {
	// Type categorizes the error
	Type ErrorType `json:"type"`

	// Message is the backend's detail string, or a local description
	Message string `json:"message"`

	// Endpoint is the API path that failed
	Endpoint string `json:"endpoint,omitempty"`

	// StatusCode for HTTP-level errors
	StatusCode int `json:"status_code,omitempty"`

	// Cause is the underlying error
	Cause error `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	var parts []string

	if e.Endpoint != "" {
		parts = append(parts, fmt.Sprintf("endpoint=%s", e.Endpoint))
	}

	parts = append(parts, fmt.Sprintf("type=%s", e.Type))

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}

	parts = append(parts, e.Message)

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%s", e.Cause.Error()))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on error type so callers can write errors.Is(err, api.ErrUnauthorized)
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Type == t.Type
	}
	return false
}

// Sentinels for errors.Is comparisons
var (
	ErrUnauthorized = &Error{Type: ErrTypeUnauthorized}
	ErrForbidden    = &Error{Type: ErrTypeForbidden}
	ErrValidation   = &Error{Type: ErrTypeValidation}
	ErrNotFound     = &Error{Type: ErrTypeNotFound}
	ErrServer       = &Error{Type: ErrTypeServer}
	ErrNetwork      = &Error{Type: ErrTypeNetwork}
	ErrTimeout      = &Error{Type: ErrTypeTimeout}
	ErrDecode       = &Error{Type: ErrTypeDecode}
)

// NewError creates a new API error
func NewError(errorType ErrorType, endpoint, message string) *Error {
	return &Error{
		Type:     errorType,
		Endpoint: endpoint,
		Message:  message,
	}
}

// NewErrorWithCause creates a new API error wrapping an underlying error
func NewErrorWithCause(errorType ErrorType, endpoint, message string, cause error) *Error {
	return &Error{
		Type:     errorType,
		Endpoint: endpoint,
		Message:  message,
		Cause:    cause,
	}
}

// errorForStatus maps a non-2xx status to an error type
func errorForStatus(status int) ErrorType {
	switch {
	case status == 401:
		return ErrTypeUnauthorized
	case status == 403:
		return ErrTypeForbidden
	case status == 404:
		return ErrTypeNotFound
	case status >= 500:
		return ErrTypeServer
	default:
		return ErrTypeValidation
	}
}

// IsUnauthorized reports whether err is a 401 from the backend
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsForbidden reports whether err is a 403 from the backend
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// Detail returns the user-facing message carried by err, or fallback.
func Detail(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		switch apiErr.Type {
		case ErrTypeValidation, ErrTypeForbidden, ErrTypeNotFound, ErrTypeServer:
			return apiErr.Message
		}
	}
	return fallback
}
