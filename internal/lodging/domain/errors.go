package lodging

import (
	"errors"
	"fmt"
)

var (
	// ErrMonthClosed is returned when a closed month would be mutated.
	ErrMonthClosed = errors.New("lodging: month is closed")
	// ErrDuplicateDay is returned when the previous day was already logged.
	ErrDuplicateDay = errors.New("lodging: day already logged")
	// ErrMonthNotFound is returned when a month has no record.
	ErrMonthNotFound = errors.New("lodging: month not found")
	// ErrRecordNotFound is returned by raw table access for unknown rows.
	ErrRecordNotFound = errors.New("lodging: record not found")
	// ErrUnknownTable is returned by raw table access for unknown tables.
	ErrUnknownTable = errors.New("lodging: unknown table")
	// ErrRecordExists is returned when creating a row whose id is taken.
	ErrRecordExists = errors.New("lodging: record already exists")
	// ErrNilDocument is returned when saving a nil document.
	ErrNilDocument = errors.New("lodging: nil document")
	// ErrInvalid is wrapped by every ValidationError.
	ErrInvalid = errors.New("lodging: invalid input")
)

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "lodging: " + e.Message
	}
	return fmt.Sprintf("lodging: %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalid.
func (e *ValidationError) Unwrap() error { return ErrInvalid }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
