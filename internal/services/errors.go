package services

import (
	"errors"
	"fmt"

	domain "github.com/menuslot/api/internal/domain"
	"github.com/menuslot/api/internal/repositories"
)

var (
	// ErrNotFound indicates the referenced category, subcategory, item, add-on or booking is missing.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPricing indicates a malformed pricing configuration or missing pricing inputs.
	ErrInvalidPricing = domain.ErrInvalidPricing
	// ErrInvalidInput indicates malformed request data.
	ErrInvalidInput = domain.ErrInvalidInput
	// ErrInvalidState indicates the resource cannot undergo the requested transition.
	ErrInvalidState = errors.New("invalid state")
	// ErrValidation indicates a booking request failed a schedule or overlap rule.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a uniqueness constraint was violated.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable indicates a backing dependency failed.
	ErrUnavailable = errors.New("dependency unavailable")
)

// BookingReason identifies the specific booking rule that failed.
type BookingReason string

const (
	BookingItemNotFound     BookingReason = "item_not_found"
	BookingNotBookable      BookingReason = "not_bookable"
	BookingInvalidTimeRange BookingReason = "invalid_time_range"
	BookingDayUnavailable   BookingReason = "day_unavailable"
	BookingSlotMismatch     BookingReason = "slot_mismatch"
	BookingSlotConflict     BookingReason = "slot_conflict"
	BookingNotFound         BookingReason = "booking_not_found"
	BookingAlreadyCancelled BookingReason = "already_cancelled"
)

// BookingError reports why a booking operation was rejected.
type BookingError struct {
	Reason  BookingReason
	Message string
	Err     error
}

func newBookingError(reason BookingReason, message string) *BookingError {
	return &BookingError{Reason: reason, Message: message}
}

func (e *BookingError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("booking service: %s", e.Message)
}

func (e *BookingError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is maps the reason onto the shared error taxonomy.
func (e *BookingError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrNotFound:
		return e.Reason == BookingItemNotFound || e.Reason == BookingNotFound
	case ErrInvalidState:
		return e.Reason == BookingNotBookable || e.Reason == BookingAlreadyCancelled
	case ErrValidation:
		switch e.Reason {
		case BookingInvalidTimeRange, BookingDayUnavailable, BookingSlotMismatch, BookingSlotConflict:
			return true
		}
	}
	return false
}

// translateRepoError converts repository failures into the service taxonomy.
func translateRepoError(err error, entity string) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %s not found", ErrNotFound, entity)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %s with this name already exists", ErrConflict, entity)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return err
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
