// Package apperror defines the domain error taxonomy shared by the store,
// the access controller and the HTTP layer.
//
// Every constructor returns an *AppError wrapping one of the sentinel errors
// below, so callers can branch with errors.Is without caring about the
// message text.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("Validation Error")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCorruptStore       = errors.New("corrupt store")
	ErrBusy               = errors.New("busy")
)

type AppError struct {
	Err     error    // actual error
	Message string   // Human-readable error message
	Field   string   // Optional: field causing the error
	Details []string // Optional: every problem found, Message is the first one
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Details: []string{message},
	}
}

// Invalid bundles several validation problems into one error. The first
// problem becomes the Message so clients that only read one line still get
// something useful.
func Invalid(problems []string) *AppError {
	msg := "invalid input"
	if len(problems) > 0 {
		msg = problems[0]
	}
	return &AppError{
		Err:     ErrValidation,
		Message: msg,
		Details: append([]string(nil), problems...),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated is returned when an operation needs a principal and the
// request carried no live session.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "Invalid credentials.",
	}
}

// CorruptStore reports a backing file that exists and has content but does
// not decode. It is never folded into "empty store".
func CorruptStore(path string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %v", ErrCorruptStore, cause),
		Message: fmt.Sprintf("store %s is corrupt", path),
	}
}

// Busy is returned when the store lock could not be acquired in time.
func Busy(resource string) *AppError {
	return &AppError{
		Err:     ErrBusy,
		Message: fmt.Sprintf("%s is busy, try again", resource),
	}
}
