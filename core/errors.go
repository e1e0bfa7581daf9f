package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

func IsValidationError(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

// ConfigurationError reports a malformed or incomplete grading configuration (weights, grade scale).
type ConfigurationError struct {
	Field  string
	Reason string
}

func NewConfigurationError(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}

func (err ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", err.Field, err.Reason)
}

func IsConfigurationError(err error) bool {
	_, ok := errors.Cause(err).(*ConfigurationError)
	return ok
}

// PersistenceError reports a failed read or write against the record store.
type PersistenceError struct {
	Op         string
	Collection Collection
	Err        error
}

func NewPersistenceError(op string, coll Collection, err error) error {
	return &PersistenceError{Op: op, Collection: coll, Err: err}
}

func (err PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", err.Op, err.Collection, err.Err)
}

func (err PersistenceError) Unwrap() error { return err.Err }

func IsPersistenceError(err error) bool {
	_, ok := errors.Cause(err).(*PersistenceError)
	return ok
}
