// Package errdefs defines the error taxonomy shared by the prompt engine,
// the AI gateway and the persistence layer.
package errdefs

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError reports caller input that cannot be acted upon, such as an
// empty prompt or an edit request without an uploaded image.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "validation error"
	}
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ParseError reports malformed JSON from an AI response or a manual edit.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "parse error"
	}
	if e.Err == nil {
		return fmt.Sprintf("parse %s", e.Source)
	}
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExternalServiceError reports a non-2xx response or a transport failure
// from an upstream API.
type ExternalServiceError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *ExternalServiceError) Error() string {
	if e == nil {
		return "external service error"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s failed with status %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NotFoundError reports a missing field path or entity id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return "not found"
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// RateLimitError reports that a caller exceeded its request quota.
type RateLimitError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e == nil {
		return "rate limited"
	}
	return fmt.Sprintf("rate limited for %s: retry in %s", e.Key, e.RetryAfter.Round(time.Second))
}

func NewValidation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func NewParse(source string, err error) error {
	return &ParseError{Source: source, Err: err}
}

func NewExternal(service string, status int, err error) error {
	return &ExternalServiceError{Service: service, StatusCode: status, Err: err}
}

func NewNotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsParse(err error) bool {
	var target *ParseError
	return errors.As(err, &target)
}

func IsExternal(err error) bool {
	var target *ExternalServiceError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsRateLimited(err error) bool {
	var target *RateLimitError
	return errors.As(err, &target)
}
