package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	domain "github.com/menuslot/api/internal/domain"
)

type bookingFixture struct {
	svc       BookingService
	items     *stubItemRepo
	bookings  *stubBookingRepo
	publisher *stubBookingPublisher
	logged    []string
}

func newBookingFixture(t *testing.T, existing ...domain.Booking) *bookingFixture {
	t.Helper()
	notBookable := itemUnder(domain.ParentCategory, "cat-1")
	notBookable.ID = "menu-only"

	f := &bookingFixture{
		items:     newStubItemRepo(bookableItem("room"), notBookable),
		bookings:  newStubBookingRepo(existing...),
		publisher: &stubBookingPublisher{},
	}
	seq := 0
	svc, err := NewBookingService(BookingServiceDeps{
		Items:     f.items,
		Bookings:  f.bookings,
		Publisher: f.publisher,
		Clock:     func() time.Time { return monday(8, 0) },
		IDGenerator: func() string {
			seq++
			return fmt.Sprintf("bk-%d", seq)
		},
		Logger: func(_ context.Context, event string, _ map[string]any) {
			f.logged = append(f.logged, event)
		},
	})
	if err != nil {
		t.Fatalf("NewBookingService: %v", err)
	}
	f.svc = svc
	return f
}

func confirmed(id string, start, end time.Time) domain.Booking {
	return domain.Booking{ID: id, ItemID: "room", StartTime: start, EndTime: end, Status: domain.BookingConfirmed}
}

func requireReason(t *testing.T, err error, want BookingReason) {
	t.Helper()
	var bookingErr *BookingError
	if !errors.As(err, &bookingErr) {
		t.Fatalf("expected BookingError %s, got %v", want, err)
	}
	if bookingErr.Reason != want {
		t.Fatalf("expected reason %s, got %s (%v)", want, bookingErr.Reason, err)
	}
}

func TestBookingServiceBookSuccess(t *testing.T) {
	f := newBookingFixture(t)
	name := " <b>Ada</b> "

	booking, err := f.svc.Book(context.Background(), BookCommand{
		ItemID:       "room",
		StartTime:    monday(10, 0),
		EndTime:      monday(11, 0),
		CustomerName: &name,
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if booking.ID != "bk-1" || booking.Status != domain.BookingConfirmed {
		t.Fatalf("unexpected booking %#v", booking)
	}
	if booking.Item == nil || booking.Item.Name != "Private dining room" {
		t.Fatalf("expected item reference, got %#v", booking.Item)
	}
	if booking.Customer.Name == nil || *booking.Customer.Name != "Ada" {
		t.Fatalf("expected sanitised customer name, got %v", booking.Customer.Name)
	}
	if !booking.CreatedAt.Equal(monday(8, 0)) {
		t.Fatalf("expected clock timestamp, got %s", booking.CreatedAt)
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0].Type != BookingEventConfirmed {
		t.Fatalf("expected confirmed event, got %#v", f.publisher.events)
	}
	if len(f.logged) != 1 || f.logged[0] != "booking.confirmed" {
		t.Fatalf("expected confirmation log, got %v", f.logged)
	}
}

func TestBookingServiceValidationOrder(t *testing.T) {
	tuesday := func(hh int) time.Time { return monday(hh, 0).AddDate(0, 0, 1) }
	cases := []struct {
		name   string
		cmd    BookCommand
		reason BookingReason
	}{
		{name: "missing item", cmd: BookCommand{ItemID: "ghost", StartTime: monday(10, 0), EndTime: monday(11, 0)}, reason: BookingItemNotFound},
		{name: "not bookable", cmd: BookCommand{ItemID: "menu-only", StartTime: monday(10, 0), EndTime: monday(11, 0)}, reason: BookingNotBookable},
		{name: "inverted range", cmd: BookCommand{ItemID: "room", StartTime: monday(11, 0), EndTime: monday(10, 0)}, reason: BookingInvalidTimeRange},
		{name: "empty range", cmd: BookCommand{ItemID: "room", StartTime: monday(10, 0), EndTime: monday(10, 0)}, reason: BookingInvalidTimeRange},
		{name: "closed day", cmd: BookCommand{ItemID: "room", StartTime: tuesday(10), EndTime: tuesday(11)}, reason: BookingDayUnavailable},
		{name: "outside slots", cmd: BookCommand{ItemID: "room", StartTime: monday(12, 0), EndTime: monday(13, 0)}, reason: BookingSlotMismatch},
		{name: "spans two slots", cmd: BookCommand{ItemID: "room", StartTime: monday(11, 0), EndTime: monday(15, 0)}, reason: BookingSlotMismatch},
		{name: "overlap", cmd: BookCommand{ItemID: "room", StartTime: monday(10, 30), EndTime: monday(11, 30)}, reason: BookingSlotConflict},
		{name: "inside existing", cmd: BookCommand{ItemID: "room", StartTime: monday(10, 15), EndTime: monday(10, 45)}, reason: BookingSlotConflict},
		{name: "encloses existing", cmd: BookCommand{ItemID: "room", StartTime: monday(9, 0), EndTime: monday(12, 0)}, reason: BookingSlotConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newBookingFixture(t, confirmed("a", monday(10, 0), monday(11, 0)))
			_, err := f.svc.Book(context.Background(), tc.cmd)
			requireReason(t, err, tc.reason)
			if len(f.bookings.created) != 0 {
				t.Fatalf("nothing should be written on rejection")
			}
		})
	}
}

func TestBookingServiceTouchingBoundaryIsAccepted(t *testing.T) {
	f := newBookingFixture(t, confirmed("a", monday(10, 0), monday(11, 0)))
	if _, err := f.svc.Book(context.Background(), BookCommand{ItemID: "room", StartTime: monday(11, 0), EndTime: monday(12, 0)}); err != nil {
		t.Fatalf("expected touching booking to succeed, got %v", err)
	}
	if _, err := f.svc.Book(context.Background(), BookCommand{ItemID: "room", StartTime: monday(9, 0), EndTime: monday(10, 0)}); err != nil {
		t.Fatalf("expected booking ending at existing start to succeed, got %v", err)
	}
}

func TestBookingServiceCancelledBookingsDoNotBlock(t *testing.T) {
	old := confirmed("a", monday(10, 0), monday(11, 0))
	old.Status = domain.BookingCancelled
	f := newBookingFixture(t, old)
	if _, err := f.svc.Book(context.Background(), BookCommand{ItemID: "room", StartTime: monday(10, 0), EndTime: monday(11, 0)}); err != nil {
		t.Fatalf("expected booking over cancelled slot to succeed, got %v", err)
	}
}

func TestBookingServiceStorageOverlapSurfacesAsSlotConflict(t *testing.T) {
	f := newBookingFixture(t, confirmed("a", monday(10, 0), monday(11, 0)))
	f.bookings.hideOverlaps = true

	_, err := f.svc.Book(context.Background(), BookCommand{ItemID: "room", StartTime: monday(10, 30), EndTime: monday(11, 30)})
	requireReason(t, err, BookingSlotConflict)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected slot conflict to classify as validation failure, got %v", err)
	}
	if len(f.publisher.events) != 0 {
		t.Fatalf("no event expected for a rejected booking")
	}
}

func TestBookingServiceRespectsLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	svc, err := NewBookingService(BookingServiceDeps{
		Items:    newStubItemRepo(bookableItem("room")),
		Bookings: newStubBookingRepo(),
		Location: tokyo,
	})
	if err != nil {
		t.Fatalf("NewBookingService: %v", err)
	}
	// 01:00 UTC Monday is 10:00 Monday in Tokyo.
	start := time.Date(2025, time.June, 2, 1, 0, 0, 0, time.UTC)
	booking, err := svc.Book(context.Background(), BookCommand{ItemID: "room", StartTime: start, EndTime: start.Add(time.Hour)})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if booking.StartTime.Location() != time.UTC {
		t.Fatalf("expected stored times in UTC")
	}
}

func TestBookingServicePublishFailureIsLogged(t *testing.T) {
	f := newBookingFixture(t)
	f.publisher.err = errors.New("pubsub down")
	if _, err := f.svc.Book(context.Background(), BookCommand{ItemID: "room", StartTime: monday(14, 0), EndTime: monday(15, 0)}); err != nil {
		t.Fatalf("publish failure must not fail the booking: %v", err)
	}
	if strings.Join(f.logged, ",") != "booking.confirmed,booking.event_publish_failed" {
		t.Fatalf("unexpected log events %v", f.logged)
	}
}

func TestBookingServiceCancelTwice(t *testing.T) {
	f := newBookingFixture(t, confirmed("a", monday(10, 0), monday(11, 0)))
	ctx := context.Background()

	cancelled, err := f.svc.Cancel(ctx, "a")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != domain.BookingCancelled || cancelled.Item == nil {
		t.Fatalf("unexpected cancelled booking %#v", cancelled)
	}

	_, err = f.svc.Cancel(ctx, "a")
	requireReason(t, err, BookingAlreadyCancelled)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	_, err = f.svc.Cancel(ctx, "missing")
	requireReason(t, err, BookingNotFound)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if len(f.publisher.events) != 1 || f.publisher.events[0].Type != BookingEventCancelled {
		t.Fatalf("expected exactly one cancellation event, got %#v", f.publisher.events)
	}
}

func TestBookingServiceListItemBookings(t *testing.T) {
	later := confirmed("late", monday(14, 0), monday(15, 0))
	earlier := confirmed("early", monday(9, 0), monday(10, 0))
	f := newBookingFixture(t, later, earlier)

	status := domain.BookingConfirmed
	from := monday(0, 0)
	bookings, err := f.svc.ListItemBookings(context.Background(), BookingListQuery{ItemID: "room", Status: &status, StartDate: &from})
	if err != nil {
		t.Fatalf("ListItemBookings: %v", err)
	}
	if len(bookings) != 2 || bookings[0].ID != "early" || bookings[1].ID != "late" {
		t.Fatalf("expected bookings sorted by start, got %#v", bookings)
	}
	if bookings[0].Item == nil {
		t.Fatalf("expected item reference on listed bookings")
	}
	if f.bookings.listFilter.StartFrom == nil || !f.bookings.listFilter.StartFrom.Equal(from) {
		t.Fatalf("expected start filter to reach repository, got %#v", f.bookings.listFilter)
	}

	bogus := domain.BookingStatus("pending")
	if _, err := f.svc.ListItemBookings(context.Background(), BookingListQuery{ItemID: "room", Status: &bogus}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown status, got %v", err)
	}
}

func TestBookingServiceGetBooking(t *testing.T) {
	f := newBookingFixture(t, confirmed("a", monday(10, 0), monday(11, 0)))
	booking, err := f.svc.GetBooking(context.Background(), "a")
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if booking.Item == nil || booking.Item.ID != "room" {
		t.Fatalf("expected item reference, got %#v", booking.Item)
	}
	if _, err := f.svc.GetBooking(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBookingServiceLogsItemLookupFailures(t *testing.T) {
	f := newBookingFixture(t, confirmed("a", monday(10, 0), monday(11, 0)))
	f.items.findErr = errors.New("firestore unavailable")
	ctx := context.Background()

	booking, err := f.svc.GetBooking(ctx, "a")
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if booking.Item != nil {
		t.Fatalf("expected no item reference when lookup fails, got %#v", booking.Item)
	}

	bookings, err := f.svc.ListItemBookings(ctx, BookingListQuery{ItemID: "room"})
	if err != nil {
		t.Fatalf("ListItemBookings: %v", err)
	}
	if len(bookings) != 1 || bookings[0].Item != nil {
		t.Fatalf("expected unresolved booking listed, got %#v", bookings)
	}

	if strings.Join(f.logged, ",") != "booking.item_lookup_failed,booking.item_lookup_failed" {
		t.Fatalf("expected both lookup failures logged, got %v", f.logged)
	}
}
