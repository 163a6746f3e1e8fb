// Package apperr defines the typed application errors shared by revgate.
//
// Each error carries an [ErrorType] that places it in the run's error
// taxonomy. Only [TypeClassification] errors abort a run; the other types are
// absorbed by the engine and surface as diagnostics inside the report.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType defines the category of the error.
type ErrorType string

const (
	TypeClassification   ErrorType = "CLASSIFICATION"
	TypeModuleInvocation ErrorType = "MODULE_INVOCATION"
	TypeModuleTimeout    ErrorType = "MODULE_TIMEOUT"
	TypeAggregation      ErrorType = "AGGREGATION"
	TypeConfiguration    ErrorType = "CONFIGURATION"
	TypeInternal         ErrorType = "INTERNAL"
)

// AppError is a domain-level error with a type and an optional cause.
type AppError struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Err     error
}

// New creates an AppError of the given type.
func New(t ErrorType, message string) *AppError {
	return &AppError{Type: t, Message: message}
}

// Wrap creates an AppError of the given type around err.
func Wrap(t ErrorType, message string, err error) *AppError {
	return &AppError{Type: t, Message: message, Err: err}
}

func (e *AppError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Type, e.Message)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(parts, " "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithError returns a copy of e wrapping err.
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Type:    e.Type,
		Message: e.Message,
		Context: e.Context,
		Err:     err,
	}
}

// WithContext returns a copy of e with an additional context value.
func (e *AppError) WithContext(key string, value any) *AppError {
	ctx := make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	return &AppError{
		Type:    e.Type,
		Message: e.Message,
		Context: ctx,
		Err:     e.Err,
	}
}

// IsType reports whether err (or anything it wraps) is an AppError of type t.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}
