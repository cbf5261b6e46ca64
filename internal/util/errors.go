// Package util provides shared types for the router.
//
// # Error Conventions
//
// This project follows a standardized error pattern across all packages:
//
//   - Sentinel errors (errors.New) for well-known, stable conditions
//     that callers check with errors.Is(). Example: ErrNotFound.
//   - Structured error types for context-rich errors that carry
//     additional fields (e.g., InvalidPatternError). Each type
//     implements Error(), Unwrap() (if wrapping), and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping that adds context to an
//     existing error without introducing a new type.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Common sentinel errors.
var (
	ErrNotFound          = errors.New("not found")
	ErrMethodNotAllowed  = errors.New("method not allowed")
	ErrInvalidPattern    = errors.New("invalid route pattern")
	ErrHandlerResolution = errors.New("handler resolution failed")
	ErrConfigInvalid     = errors.New("invalid configuration")
)

// RouteNotFoundError is returned when no route matches the
// method, path, host, port and scheme of a request.
type RouteNotFoundError struct {
	Method string
	Path   string
	Host   string
}

// Error implements the error interface.
func (e *RouteNotFoundError) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("no route found for %s %s (host %s)", e.Method, e.Path, e.Host)
	}
	return fmt.Sprintf("no route found for %s %s", e.Method, e.Path)
}

// Is checks if the error matches the target.
func (e *RouteNotFoundError) Is(target error) bool {
	if target == ErrNotFound {
		return true
	}
	_, ok := target.(*RouteNotFoundError)
	return ok
}

// NewRouteNotFoundError creates a new RouteNotFoundError.
func NewRouteNotFoundError(method, path, host string) *RouteNotFoundError {
	return &RouteNotFoundError{Method: method, Path: path, Host: host}
}

// MethodNotAllowedError is returned when the path matches at least one
// route, but none registered for the requested method.
type MethodNotAllowedError struct {
	Method  string
	Path    string
	Allowed []string
}

// Error implements the error interface.
func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("method %s not allowed for %s (allowed: %s)",
		e.Method, e.Path, strings.Join(e.Allowed, ", "))
}

// Is checks if the error matches the target.
func (e *MethodNotAllowedError) Is(target error) bool {
	if target == ErrMethodNotAllowed {
		return true
	}
	_, ok := target.(*MethodNotAllowedError)
	return ok
}

// NewMethodNotAllowedError creates a new MethodNotAllowedError.
func NewMethodNotAllowedError(method, path string, allowed []string) *MethodNotAllowedError {
	return &MethodNotAllowedError{Method: method, Path: path, Allowed: allowed}
}

// InvalidPatternError is returned when a route template is malformed.
// Position is the byte offset of the offending segment, or -1.
type InvalidPatternError struct {
	Pattern  string
	Position int
	Reason   string
	Cause    error
}

// Error implements the error interface.
func (e *InvalidPatternError) Error() string {
	msg := fmt.Sprintf("invalid pattern %q: %s", e.Pattern, e.Reason)
	if e.Position >= 0 {
		msg = fmt.Sprintf("invalid pattern %q at offset %d: %s", e.Pattern, e.Position, e.Reason)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *InvalidPatternError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *InvalidPatternError) Is(target error) bool {
	if target == ErrInvalidPattern {
		return true
	}
	_, ok := target.(*InvalidPatternError)
	return ok || errors.Is(e.Cause, target)
}

// NewInvalidPatternError creates a new InvalidPatternError.
func NewInvalidPatternError(pattern string, position int, reason string) *InvalidPatternError {
	return &InvalidPatternError{Pattern: pattern, Position: position, Reason: reason}
}

// NewInvalidPatternErrorWithCause creates a new InvalidPatternError with a cause.
func NewInvalidPatternErrorWithCause(pattern string, position int, reason string, cause error) *InvalidPatternError {
	return &InvalidPatternError{Pattern: pattern, Position: position, Reason: reason, Cause: cause}
}

// HandlerResolutionError is returned when a handler reference cannot be
// turned into something invocable.
type HandlerResolutionError struct {
	Ref   string
	Cause error
}

// Error implements the error interface.
func (e *HandlerResolutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cannot resolve handler %s: %v", e.Ref, e.Cause)
	}
	return fmt.Sprintf("cannot resolve handler %s", e.Ref)
}

// Unwrap returns the underlying error.
func (e *HandlerResolutionError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *HandlerResolutionError) Is(target error) bool {
	if target == ErrHandlerResolution {
		return true
	}
	_, ok := target.(*HandlerResolutionError)
	return ok || errors.Is(e.Cause, target)
}

// NewHandlerResolutionError creates a new HandlerResolutionError.
func NewHandlerResolutionError(ref string, cause error) *HandlerResolutionError {
	return &HandlerResolutionError{Ref: ref, Cause: cause}
}

// ConfigError represents a configuration-related error.
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error at %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ConfigError) Is(target error) bool {
	if target == ErrConfigInvalid {
		return true
	}
	_, ok := target.(*ConfigError)
	return ok || errors.Is(e.Cause, target)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with a cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}
