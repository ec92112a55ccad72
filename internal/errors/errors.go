package errors

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Error types for the cross-reference index
type ErrorType string

const (
	// Storage errors
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeFormat     ErrorType = "format"
	ErrorTypePermission ErrorType = "permission"
	ErrorTypeNotFound   ErrorType = "not_found"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"

	// Programming errors
	ErrorTypeInvalidArgument ErrorType = "invalid_argument"
)

// Sentinel errors for errors.Is
var (
	ErrVersionMismatch = errors.New("node format version mismatch")
	ErrCorruptNode     = errors.New("corrupt node data")
	ErrInvalidArgument = errors.New("invalid argument")
)

// StorageError represents a failed blob operation
type StorageError struct {
	Type       ErrorType
	Operation  string
	Name       string
	Underlying error
	Timestamp  time.Time
}

// NewStorageError creates a storage error for the named blob
func NewStorageError(op, name string, err error) *StorageError {
	errorType := ErrorTypeStorage
	switch {
	case errors.Is(err, os.ErrPermission):
		errorType = ErrorTypePermission
	case errors.Is(err, os.ErrNotExist):
		errorType = ErrorTypeNotFound
	}
	return &StorageError{
		Type:       errorType,
		Operation:  op,
		Name:       name,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s failed for %s: %v", e.Type, e.Operation, e.Name, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *StorageError) Unwrap() error {
	return e.Underlying
}

// IsNotFound reports whether the blob simply did not exist
func (e *StorageError) IsNotFound() bool {
	return e.Type == ErrorTypeNotFound
}

// FormatError represents unreadable persisted node data
type FormatError struct {
	Type       ErrorType
	Name       string
	Version    int32
	Expected   int32
	Underlying error
	Timestamp  time.Time
}

// NewVersionError reports a node written with an unsupported format version
func NewVersionError(name string, version, expected int32) *FormatError {
	return &FormatError{
		Type:       ErrorTypeFormat,
		Name:       name,
		Version:    version,
		Expected:   expected,
		Underlying: ErrVersionMismatch,
		Timestamp:  time.Now(),
	}
}

// NewCorruptNodeError reports truncated or otherwise undecodable node data
func NewCorruptNodeError(name string, err error) *FormatError {
	return &FormatError{
		Type:       ErrorTypeFormat,
		Name:       name,
		Underlying: fmt.Errorf("%w: %v", ErrCorruptNode, err),
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *FormatError) Error() string {
	if errors.Is(e.Underlying, ErrVersionMismatch) {
		return fmt.Sprintf("node %s has format version %d, expected %d", e.Name, e.Version, e.Expected)
	}
	return fmt.Sprintf("node %s cannot be decoded: %v", e.Name, e.Underlying)
}

// Unwrap returns the underlying error
func (e *FormatError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// InvalidArgumentError represents misuse of an API, e.g. a negative key
type InvalidArgumentError struct {
	Type      ErrorType
	Argument  string
	Value     interface{}
	Timestamp time.Time
}

// NewInvalidArgumentError creates a new invalid argument error
func NewInvalidArgumentError(argument string, value interface{}) *InvalidArgumentError {
	return &InvalidArgumentError{
		Type:      ErrorTypeInvalidArgument,
		Argument:  argument,
		Value:     value,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface
func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %v", e.Argument, e.Value)
}

// Unwrap returns ErrInvalidArgument
func (e *InvalidArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error
func NewMultiError(errs []error) *MultiError {
	// Filter out nil errors
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// ErrorOrNil returns nil when no errors were collected
func (e *MultiError) ErrorOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}
