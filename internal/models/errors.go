package models

import (
	"errors"
	"fmt"
)

// Error kinds reported to callers, metrics and API clients
const (
	KindSchemaMismatch   = "schema_mismatch"
	KindImputation       = "imputation"
	KindInvalidDate      = "invalid_date"
	KindInsufficientData = "insufficient_data"
	KindDegenerateFit    = "degenerate_fit"
)

// SchemaMismatchError is returned when batches or required columns do not line up
type SchemaMismatchError struct {
	Column  string
	Batch   int
	Message string
}

func (e *SchemaMismatchError) Error() string {
	if e.Column == "" {
		return "schema mismatch: " + e.Message
	}
	return fmt.Sprintf("schema mismatch on column %q: %s", e.Column, e.Message)
}

// IsTransient returns false: the same input always fails the same way
func (e *SchemaMismatchError) IsTransient() bool {
	return false
}

// ImputationError is returned when a column has no value to derive a fill from
type ImputationError struct {
	Column  string
	Message string
}

func (e *ImputationError) Error() string {
	return fmt.Sprintf("cannot impute column %q: %s", e.Column, e.Message)
}

// IsTransient returns false: the same input always fails the same way
func (e *ImputationError) IsTransient() bool {
	return false
}

// InvalidDateError is returned when year/month/day of a record is not a calendar date
type InvalidDateError struct {
	Row   int
	Year  int
	Month int
	Day   int
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date at row %d: %04d-%02d-%02d", e.Row, e.Year, e.Month, e.Day)
}

// IsTransient returns false: the same input always fails the same way
func (e *InvalidDateError) IsTransient() bool {
	return false
}

// InsufficientDataError is returned when a statistic is undefined for the input
type InsufficientDataError struct {
	Column  string
	Message string
}

func (e *InsufficientDataError) Error() string {
	if e.Column == "" {
		return "insufficient data: " + e.Message
	}
	return fmt.Sprintf("insufficient data in column %q: %s", e.Column, e.Message)
}

// IsTransient returns false: the same input always fails the same way
func (e *InsufficientDataError) IsTransient() bool {
	return false
}

// DegenerateFitError is returned when the regression predictor has no spread
type DegenerateFitError struct {
	Column  string
	Message string
}

func (e *DegenerateFitError) Error() string {
	return fmt.Sprintf("degenerate fit on %q: %s", e.Column, e.Message)
}

// IsTransient returns false: the same input always fails the same way
func (e *DegenerateFitError) IsTransient() bool {
	return false
}

// ErrorKind classifies a pipeline error. It returns "" for errors outside the pipeline taxonomy.
func ErrorKind(err error) string {
	var (
		schemaErr     *SchemaMismatchError
		imputeErr     *ImputationError
		dateErr       *InvalidDateError
		insufficient  *InsufficientDataError
		degenerateErr *DegenerateFitError
	)

	switch {
	case errors.As(err, &schemaErr):
		return KindSchemaMismatch
	case errors.As(err, &imputeErr):
		return KindImputation
	case errors.As(err, &dateErr):
		return KindInvalidDate
	case errors.As(err, &insufficient):
		return KindInsufficientData
	case errors.As(err, &degenerateErr):
		return KindDegenerateFit
	default:
		return ""
	}
}

// ErrorColumn returns the offending column or field of a pipeline error, if any
func ErrorColumn(err error) string {
	var (
		schemaErr     *SchemaMismatchError
		imputeErr     *ImputationError
		insufficient  *InsufficientDataError
		degenerateErr *DegenerateFitError
		dateErr       *InvalidDateError
	)

	switch {
	case errors.As(err, &schemaErr):
		return schemaErr.Column
	case errors.As(err, &imputeErr):
		return imputeErr.Column
	case errors.As(err, &insufficient):
		return insufficient.Column
	case errors.As(err, &degenerateErr):
		return degenerateErr.Column
	case errors.As(err, &dateErr):
		return "date"
	default:
		return ""
	}
}
