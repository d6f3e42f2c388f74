package booking

import (
	"errors"
	"fmt"

	"deskplan/internal/models"
)

// Error codes reported to operator surfaces.
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeConflict    = "CONFLICT"
	CodeNotFound    = "RESOURCE_NOT_FOUND"
	CodePersistence = "PERSISTENCE_ERROR"
	CodeInternal    = "INTERNAL_ERROR"
)

// ValidationError reports malformed input. Nothing was changed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConflictError reports a weekday/slot pair that is already booked.
// No booking of the request was created.
type ConflictError struct {
	DeskID string
	Day    models.Weekday
	Slot   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot already booked on %s %s", e.Day, e.Slot)
}

// NotFoundError reports an unknown desk or booking.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// PersistenceError reports a failed save. The in-memory state was
// rolled back to the last persisted document.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsPersistence(err error) bool {
	var e *PersistenceError
	return errors.As(err, &e)
}

// Code maps an error to its code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case IsValidation(err):
		return CodeValidation
	case IsConflict(err):
		return CodeConflict
	case IsNotFound(err):
		return CodeNotFound
	case IsPersistence(err):
		return CodePersistence
	}
	return CodeInternal
}
