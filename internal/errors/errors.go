// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrJournalNotFound  = errors.New("journal not found")
	ErrTradeNotFound    = errors.New("trade not found")
	ErrSettingsNotFound = errors.New("settings not found")
	ErrInvalidTrade     = errors.New("invalid trade")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrCacheUnavailable = errors.New("cache unavailable")
)

// ValidationError is a rejected journal or trade field. It matches
// ErrInvalidTrade.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidTrade
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// DetectorError is returned (or recovered) from a single alert detector.
type DetectorError struct {
	Detector string
	TradeID  string
	Err      error
}

func (e *DetectorError) Error() string {
	return fmt.Sprintf("detector error [%s] trade %s: %v", e.Detector, e.TradeID, e.Err)
}

func (e *DetectorError) Unwrap() error {
	return e.Err
}

// NewDetectorError creates a new DetectorError.
func NewDetectorError(detector, tradeID string, err error) *DetectorError {
	return &DetectorError{
		Detector: detector,
		TradeID:  tradeID,
		Err:      err,
	}
}

// StoreError represents a persistence failure.
type StoreError struct {
	Operation string
	Entity    string
	ID        string
	Err       error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("store error [%s %s %s]: %v", e.Operation, e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("store error [%s %s]: %v", e.Operation, e.Entity, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(operation, entity, id string, err error) *StoreError {
	return &StoreError{
		Operation: operation,
		Entity:    entity,
		ID:        id,
		Err:       err,
	}
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
