package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned for requests missing required fields.
	ErrInvalidRequest = errors.New("invalid query request")

	// ErrExecution is returned when the database rejects or fails a statement.
	ErrExecution = errors.New("query execution failed")
)

// QueryError represents a failed statement with context.
type QueryError struct {
	Operation string
	Table     string
	Query     string
	Cause     error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%s on %s: %v", e.Operation, e.Table, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// Is reports ErrExecution for every query error.
func (e *QueryError) Is(target error) bool {
	return target == ErrExecution
}
