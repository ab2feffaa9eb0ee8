package courses

import (
	"errors"
	"fmt"
)

// User-visible messages published to the message bus.
const (
	LoadFailedMessage = "Could not load courses"
	SaveFailedMessage = "Could not save course"
)

// Kind classifies a store failure.
type Kind string

const (
	// KindLoad is a failed fetch of the full collection.
	KindLoad Kind = "load"

	// KindSave is a failed remote update of one course.
	KindSave Kind = "save"
)

var (
	// ErrLoadFailed matches any load [Error] via errors.Is.
	ErrLoadFailed = errors.New("course load failed")

	// ErrSaveFailed matches any save [Error] via errors.Is.
	ErrSaveFailed = errors.New("course save failed")

	// ErrInvalidChanges is returned when a [Changes] value has a wrongly typed
	// field. Nothing is applied or sent.
	ErrInvalidChanges = errors.New("invalid course changes")
)

// Error is a remote failure reported by the [Store].
//
// Message is the generic text published to the message bus. The cause is
// kept for the caller and logged together with CorrelationID, which ties a
// returned error to its log entry.
type Error struct {
	Kind          Kind
	Message       string
	CourseID      string
	CorrelationID string
	Cause         error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.CourseID != "" {
		return fmt.Sprintf("%s %s (correlation_id: %s): %v", e.Message, e.CourseID, e.CorrelationID, e.Cause)
	}
	return fmt.Sprintf("%s (correlation_id: %s): %v", e.Message, e.CorrelationID, e.Cause)
}

// Unwrap returns the underlying transport error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrLoadFailed:
		return e.Kind == KindLoad
	case ErrSaveFailed:
		return e.Kind == KindSave
	}
	return false
}

func messageFor(kind Kind) string {
	if kind == KindSave {
		return SaveFailedMessage
	}
	return LoadFailedMessage
}
