// Package domain defines core error types shared across the pipeline.
package domain

import "fmt"

// SourceUnavailableError indicates a dataset could not be fetched.
// Fatal: a failed fetch aborts the whole run.
type SourceUnavailableError struct {
	Message string
}

func (e *SourceUnavailableError) Error() string { return e.Message }

// SchemaMismatchError indicates an expected column was absent after load.
// Fatal: the pipeline cannot proceed without its declared columns.
type SchemaMismatchError struct {
	Message string
}

func (e *SchemaMismatchError) Error() string { return e.Message }

// ValidationError indicates invalid input to a pipeline stage.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ParseError records a single cell or column that could not be coerced to
// its declared type. Not fatal: the cell (or date-encoded column) is
// skipped and the error is surfaced for logging only.
type ParseError struct {
	Column  string
	Row     int // -1 when the failure is column-level (e.g. an unparseable column name)
	Message string
}

func (e *ParseError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("column %q: %s", e.Column, e.Message)
	}
	return fmt.Sprintf("column %q row %d: %s", e.Column, e.Row, e.Message)
}

// ErrSourceUnavailable creates a SourceUnavailableError with a formatted message.
func ErrSourceUnavailable(format string, args ...interface{}) *SourceUnavailableError {
	return &SourceUnavailableError{Message: fmt.Sprintf(format, args...)}
}

// ErrSchemaMismatch creates a SchemaMismatchError with a formatted message.
func ErrSchemaMismatch(format string, args ...interface{}) *SchemaMismatchError {
	return &SchemaMismatchError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
