package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/menuslot/api/internal/domain"
	"github.com/menuslot/api/internal/repositories"
)

// AvailabilityServiceDeps bundles collaborators for slot computation.
type AvailabilityServiceDeps struct {
	Items    repositories.ItemRepository
	Bookings repositories.BookingRepository
	Clock    func() time.Time
	// Location anchors weekdays and HH:MM slot bounds. Defaults to UTC.
	Location *time.Location
}

type availabilityService struct {
	items    repositories.ItemRepository
	bookings repositories.BookingRepository
	now      func() time.Time
	loc      *time.Location
}

var _ AvailabilityService = (*availabilityService)(nil)

// NewAvailabilityService constructs the availability calculator.
func NewAvailabilityService(deps AvailabilityServiceDeps) (AvailabilityService, error) {
	if deps.Items == nil {
		return nil, errors.New("availability service: item repository is required")
	}
	if deps.Bookings == nil {
		return nil, errors.New("availability service: booking repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &availabilityService{items: deps.Items, bookings: deps.Bookings, now: clock, loc: loc}, nil
}

func (s *availabilityService) AvailableSlots(ctx context.Context, itemID string, date *time.Time) (domain.AvailabilityResult, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return domain.AvailabilityResult{}, fmt.Errorf("%w: item id is required", ErrInvalidInput)
	}
	item, err := loadActiveItem(ctx, s.items, itemID)
	if err != nil {
		return domain.AvailabilityResult{}, err
	}
	if !item.Bookable() {
		return domain.AvailabilityResult{}, newBookingError(BookingNotBookable, "Item is not bookable")
	}

	target := s.now()
	if date != nil {
		target = *date
	}
	day := domain.MidnightIn(target, s.loc)

	result := domain.AvailabilityResult{
		ItemID:         item.ID,
		ItemName:       item.Name,
		Date:           day,
		AvailableSlots: []domain.OpenSlot{},
	}
	if !item.Availability.OpenOn(day.Weekday()) {
		result.Message = fmt.Sprintf("Item is not available on %s", day.Weekday())
		return result, nil
	}

	slots := usableSlots(item.Availability.Slots)
	if len(slots) == 0 {
		return result, nil
	}

	// One query spanning every slot of the day; each slot is then checked in memory.
	first, last := slots[0].Start, slots[0].End
	for _, slot := range slots[1:] {
		if slot.Start < first {
			first = slot.Start
		}
		if slot.End > last {
			last = slot.End
		}
	}
	booked, err := s.bookings.ListConfirmedOverlapping(ctx, item.ID, first.On(day), last.On(day))
	if err != nil {
		return domain.AvailabilityResult{}, translateRepoError(err, "booking")
	}

	for _, slot := range slots {
		start, end := slot.Start.On(day), slot.End.On(day)
		if slotTaken(booked, start, end) {
			continue
		}
		result.AvailableSlots = append(result.AvailableSlots, domain.OpenSlot{
			Start:     start,
			End:       end,
			StartTime: slot.Start,
			EndTime:   slot.End,
		})
	}
	return result, nil
}

// usableSlots drops zero-length and inverted slots, keeping declaration order.
func usableSlots(slots []domain.TimeSlot) []domain.TimeSlot {
	out := make([]domain.TimeSlot, 0, len(slots))
	for _, slot := range slots {
		if slot.Usable() {
			out = append(out, slot)
		}
	}
	return out
}

func slotTaken(bookings []domain.Booking, start, end time.Time) bool {
	for _, booking := range bookings {
		if booking.Status != domain.BookingConfirmed {
			continue
		}
		if domain.IntervalsOverlap(start, end, booking.StartTime, booking.EndTime) {
			return true
		}
	}
	return false
}
