package repositories

import "fmt"

// BookingErrorCode enumerates repository error causes for booking writes.
type BookingErrorCode string

const (
	// BookingErrorUnknown represents an unspecified failure.
	BookingErrorUnknown BookingErrorCode = "booking_unknown"
	// BookingErrorOverlap indicates a confirmed booking already holds part of the interval.
	BookingErrorOverlap BookingErrorCode = "booking_overlap"
	// BookingErrorNotFound indicates the booking document is missing.
	BookingErrorNotFound BookingErrorCode = "booking_not_found"
	// BookingErrorAlreadyCancelled indicates the booking was cancelled before.
	BookingErrorAlreadyCancelled BookingErrorCode = "booking_already_cancelled"
)

// BookingError wraps booking-specific failures with machine readable codes.
type BookingError struct {
	Op      string
	Code    BookingErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *BookingError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *BookingError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsNotFound reports whether the booking was missing.
func (e *BookingError) IsNotFound() bool { return e != nil && e.Code == BookingErrorNotFound }

// IsConflict reports whether the write lost against existing state.
func (e *BookingError) IsConflict() bool {
	return e != nil && (e.Code == BookingErrorOverlap || e.Code == BookingErrorAlreadyCancelled)
}

// IsUnavailable reports whether the failure came from the backing store.
func (e *BookingError) IsUnavailable() bool { return e != nil && e.Code == BookingErrorUnknown }

// NewBookingError constructs a typed booking error.
func NewBookingError(op string, code BookingErrorCode, message string, err error) *BookingError {
	if message == "" {
		message = string(code)
	}
	return &BookingError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
