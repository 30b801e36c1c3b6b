package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrorKindValidation           ErrorKind = "validation_error"
	ErrorKindAvailabilityConflict ErrorKind = "availability_conflict"
	ErrorKindInvalidTransition    ErrorKind = "invalid_transition"
	ErrorKindNotAuthorized        ErrorKind = "not_authorized"
	ErrorKindPaymentFailed        ErrorKind = "payment_failed"
	ErrorKindPersistence          ErrorKind = "persistence_error"
	ErrorKindNotFound             ErrorKind = "not_found"
)

// Repository level sentinels. The booking service translates them into kinds.
var (
	ErrNotFound             = errors.New("record not found")
	ErrAvailabilityConflict = errors.New("vehicle already booked for the requested dates")
	ErrStaleBooking         = errors.New("booking was modified concurrently")
)

// Error is the labelled failure returned across the booking service boundary.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func NewValidationError(msg string) *Error {
	return &Error{Kind: ErrorKindValidation, Message: msg}
}

func NewNotAuthorizedError(msg string) *Error {
	return &Error{Kind: ErrorKindNotAuthorized, Message: msg}
}

func NewInvalidTransitionError(msg string) *Error {
	return &Error{Kind: ErrorKindInvalidTransition, Message: msg}
}

func NewPaymentFailedError(msg string, err error) *Error {
	return &Error{Kind: ErrorKindPaymentFailed, Message: msg, Err: err}
}

func NewPersistenceError(msg string, err error) *Error {
	return &Error{Kind: ErrorKindPersistence, Message: msg, Err: err}
}

// KindOf extracts the kind of err. Unlabelled errors are reported as persistence errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrorKindNotFound
	case errors.Is(err, ErrAvailabilityConflict):
		return ErrorKindAvailabilityConflict
	case errors.Is(err, ErrStaleBooking):
		return ErrorKindInvalidTransition
	}
	return ErrorKindPersistence
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// MessageOf returns the human readable part of err.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
