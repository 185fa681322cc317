package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the domain packages. Handlers translate
// these into HTTP responses; anything else is treated as an internal
// failure.
var (
	// ErrNotFound indicates the requested teacher/student/record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDenied indicates the caller's role or cohort does not permit the operation.
	ErrDenied = errors.New("access denied")

	// ErrNoCohort indicates a teacher without an assigned cohort; the caller
	// should be guided to contact the HOD rather than shown a failure.
	ErrNoCohort = errors.New("no cohort assigned")

	// ErrNoStudents indicates a teacher attempted a roster operation with
	// zero explicitly assigned students.
	ErrNoStudents = errors.New("no students assigned")

	// ErrCredentials indicates a failed username/password check.
	ErrCredentials = errors.New("invalid username or password")
)

// ValidationError carries a user-visible message for rejected input
// (future-dated attendance, duplicate identifiers, missing fields).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError with a formatted message.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
