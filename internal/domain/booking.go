package domain

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// Valid reports whether the status is known.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// Customer holds the optional contact details left with a booking.
type Customer struct {
	Name  *string
	Email *string
	Phone *string
}

// Booking reserves an item for the half-open interval [StartTime, EndTime).
type Booking struct {
	ID        string
	ItemID    string
	Item      *ItemRef
	StartTime time.Time
	EndTime   time.Time
	Status    BookingStatus
	Customer  Customer
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Overlaps reports whether the booking intersects [start, end). Touching endpoints do not overlap.
func (b Booking) Overlaps(start, end time.Time) bool {
	return IntervalsOverlap(b.StartTime, b.EndTime, start, end)
}

// IntervalsOverlap applies the half-open overlap test to [aStart, aEnd) and [bStart, bEnd).
// It is the union of: b starts inside a, b ends inside a, b encloses a.
func IntervalsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	startsInside := !bStart.Before(aStart) && bStart.Before(aEnd)
	endsInside := bEnd.After(aStart) && !bEnd.After(aEnd)
	encloses := !bStart.After(aStart) && !bEnd.Before(aEnd)
	return startsInside || endsInside || encloses
}

// OpenSlot is a free slot on a concrete date.
type OpenSlot struct {
	Start     time.Time
	End       time.Time
	StartTime ClockTime
	EndTime   ClockTime
}

// AvailabilityResult lists the open slots for an item on one date.
type AvailabilityResult struct {
	ItemID         string
	ItemName       string
	Date           time.Time
	AvailableSlots []OpenSlot
	Message        string
}
