// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrDataUnavailable    = errors.New("no market data this cycle")
	ErrFeedUnavailable    = errors.New("data feed unavailable")
	ErrFeatureMismatch    = errors.New("model feature mismatch")
	ErrModelUnavailable   = errors.New("model artifact not loaded")
	ErrStateNotFound      = errors.New("symbol state not found")
	ErrPersistenceCorrupt = errors.New("symbol state record corrupt")
	ErrNotificationFailed = errors.New("notification delivery failed")
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrTimeout            = errors.New("operation timed out")
)

// DataError represents a data-related error from the feed or indicator layer.
type DataError struct {
	DataType  string
	Symbol    string
	Timeframe string
	Message   string
	Err       error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s %s: %s: %v", e.DataType, e.Symbol, e.Timeframe, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s %s: %s", e.DataType, e.Symbol, e.Timeframe, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, symbol, timeframe, message string, err error) *DataError {
	return &DataError{
		DataType:  dataType,
		Symbol:    symbol,
		Timeframe: timeframe,
		Message:   message,
		Err:       err,
	}
}

// ModelError represents an error from the classifier gate.
type ModelError struct {
	ModelPath string
	Operation string
	Err       error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model error [%s] %s: %v", e.ModelPath, e.Operation, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError creates a new ModelError.
func NewModelError(modelPath, operation string, err error) *ModelError {
	return &ModelError{
		ModelPath: modelPath,
		Operation: operation,
		Err:       err,
	}
}

// StateError represents a persistence error for a symbol state record.
type StateError struct {
	Symbol    string
	Timeframe string
	Message   string
	Err       error
}

func (e *StateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("state error [%s %s]: %s: %v", e.Symbol, e.Timeframe, e.Message, e.Err)
	}
	return fmt.Sprintf("state error [%s %s]: %s", e.Symbol, e.Timeframe, e.Message)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// NewStateError creates a new StateError.
func NewStateError(symbol, timeframe, message string, err error) *StateError {
	return &StateError{
		Symbol:    symbol,
		Timeframe: timeframe,
		Message:   message,
		Err:       err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
