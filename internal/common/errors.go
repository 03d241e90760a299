// Package common defines shared constants and sentinel errors used across
// the task service layers. Callers should use errors.Is / errors.As to
// match these values.
package common

import (
	"errors"
	"sort"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// FieldError describes a single violated field constraint.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError aggregates every field violation found in one request.
// It matches ErrorValidation under errors.Is.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError returns nil when no violations are given, so callers can
// return the result directly.
func NewValidationError(fields ...FieldError) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation error: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrorValidation
}

// FieldMap flattens the violations into field -> message, keeping the first
// message reported for a field.
func (e *ValidationError) FieldMap() map[string]string {
	m := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		if _, ok := m[f.Field]; !ok {
			m[f.Field] = f.Message
		}
	}
	return m
}

// DisallowedFields returns the keys of fields that are not in allowed, sorted.
func DisallowedFields(fields []string, allowed []string) []string {
	ok := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		ok[a] = struct{}{}
	}
	var rejected []string
	for _, f := range fields {
		if _, found := ok[f]; !found {
			rejected = append(rejected, f)
		}
	}
	sort.Strings(rejected)
	return rejected
}
