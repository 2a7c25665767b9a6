package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/menuslot/api/internal/domain"
	"github.com/menuslot/api/internal/platform/textutil"
	"github.com/menuslot/api/internal/repositories"
)

// BookingServiceDeps bundles collaborators required by the booking writer.
type BookingServiceDeps struct {
	Items     repositories.ItemRepository
	Bookings  repositories.BookingRepository
	Publisher BookingEventPublisher
	Clock     func() time.Time
	// Location anchors weekdays and HH:MM slot bounds. Defaults to UTC.
	Location    *time.Location
	IDGenerator func() string
	Tracer      trace.Tracer
	Logger      func(context.Context, string, map[string]any)
}

type bookingService struct {
	items     repositories.ItemRepository
	bookings  repositories.BookingRepository
	publisher BookingEventPublisher
	now       func() time.Time
	loc       *time.Location
	newID     func() string
	tracer    trace.Tracer
	logger    func(context.Context, string, map[string]any)
}

var _ BookingService = (*bookingService)(nil)

// NewBookingService constructs the booking writer.
func NewBookingService(deps BookingServiceDeps) (BookingService, error) {
	if deps.Items == nil {
		return nil, errors.New("booking service: item repository is required")
	}
	if deps.Bookings == nil {
		return nil, errors.New("booking service: booking repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(serviceTracerName)
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &bookingService{
		items:     deps.Items,
		bookings:  deps.Bookings,
		publisher: deps.Publisher,
		now: func() time.Time {
			return clock().UTC()
		},
		loc:    loc,
		newID:  idGen,
		tracer: tracer,
		logger: logger,
	}, nil
}

func (s *bookingService) Book(ctx context.Context, cmd BookCommand) (domain.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "booking.book", trace.WithAttributes(attribute.String("item.id", cmd.ItemID)))
	defer span.End()

	booking, err := s.book(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "booking rejected")
		var bookingErr *BookingError
		if errors.As(err, &bookingErr) {
			span.SetAttributes(attribute.String("booking.reason", string(bookingErr.Reason)))
		}
		return domain.Booking{}, err
	}
	span.SetAttributes(attribute.String("booking.id", booking.ID))
	return booking, nil
}

func (s *bookingService) book(ctx context.Context, cmd BookCommand) (domain.Booking, error) {
	itemID := strings.TrimSpace(cmd.ItemID)
	if itemID == "" {
		return domain.Booking{}, newBookingError(BookingItemNotFound, "Item not found")
	}
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		if isRepoNotFound(err) {
			return domain.Booking{}, newBookingError(BookingItemNotFound, "Item not found")
		}
		return domain.Booking{}, translateRepoError(err, "item")
	}
	if !item.IsActive {
		return domain.Booking{}, newBookingError(BookingItemNotFound, "Item not found")
	}
	if !item.Bookable() {
		return domain.Booking{}, newBookingError(BookingNotBookable, "Item is not bookable")
	}

	start, end := cmd.StartTime, cmd.EndTime
	if start.IsZero() || end.IsZero() {
		return domain.Booking{}, newBookingError(BookingInvalidTimeRange, "Start time and end time are required")
	}
	if !end.After(start) {
		return domain.Booking{}, newBookingError(BookingInvalidTimeRange, "End time must be after start time")
	}

	localStart := start.In(s.loc)
	if !item.Availability.OpenOn(localStart.Weekday()) {
		return domain.Booking{}, newBookingError(BookingDayUnavailable, fmt.Sprintf("Item is not available on %s", localStart.Weekday()))
	}
	if !withinSlot(item.Availability.Slots, localStart, end.Sub(start)) {
		return domain.Booking{}, newBookingError(BookingSlotMismatch, "Requested time slot is not within available time slots")
	}

	existing, err := s.bookings.ListConfirmedOverlapping(ctx, item.ID, start, end)
	if err != nil {
		return domain.Booking{}, translateRepoError(err, "booking")
	}
	if len(existing) > 0 {
		return domain.Booking{}, newBookingError(BookingSlotConflict, "Time slot is already booked")
	}

	now := s.now()
	candidate := domain.Booking{
		ID:        s.newID(),
		ItemID:    item.ID,
		StartTime: start.UTC(),
		EndTime:   end.UTC(),
		Status:    domain.BookingConfirmed,
		Customer: domain.Customer{
			Name:  textutil.CleanOptional(cmd.CustomerName),
			Email: textutil.CleanOptional(cmd.CustomerEmail),
			Phone: textutil.CleanOptional(cmd.CustomerPhone),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	stored, err := s.bookings.CreateConfirmed(ctx, candidate)
	if err != nil {
		var repoErr *repositories.BookingError
		if errors.As(err, &repoErr) && repoErr.Code == repositories.BookingErrorOverlap {
			return domain.Booking{}, &BookingError{Reason: BookingSlotConflict, Message: "Time slot is already booked", Err: err}
		}
		return domain.Booking{}, translateRepoError(err, "booking")
	}

	ref := item.Ref()
	stored.Item = &ref
	s.logger(ctx, "booking.confirmed", map[string]any{
		"bookingID": stored.ID,
		"itemID":    stored.ItemID,
		"startTime": stored.StartTime,
		"endTime":   stored.EndTime,
	})
	s.publish(ctx, BookingEventConfirmed, stored)
	return stored, nil
}

func (s *bookingService) Cancel(ctx context.Context, bookingID string) (domain.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "booking.cancel", trace.WithAttributes(attribute.String("booking.id", bookingID)))
	defer span.End()

	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return domain.Booking{}, newBookingError(BookingNotFound, "Booking not found")
	}

	cancelled, err := s.bookings.Cancel(ctx, bookingID, s.now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancel rejected")
		var repoErr *repositories.BookingError
		if errors.As(err, &repoErr) {
			switch repoErr.Code {
			case repositories.BookingErrorNotFound:
				return domain.Booking{}, &BookingError{Reason: BookingNotFound, Message: "Booking not found", Err: err}
			case repositories.BookingErrorAlreadyCancelled:
				return domain.Booking{}, &BookingError{Reason: BookingAlreadyCancelled, Message: "Booking is already cancelled", Err: err}
			}
		}
		if isRepoNotFound(err) {
			return domain.Booking{}, &BookingError{Reason: BookingNotFound, Message: "Booking not found", Err: err}
		}
		return domain.Booking{}, translateRepoError(err, "booking")
	}

	s.attachItem(ctx, &cancelled)
	s.logger(ctx, "booking.cancelled", map[string]any{
		"bookingID": cancelled.ID,
		"itemID":    cancelled.ItemID,
	})
	s.publish(ctx, BookingEventCancelled, cancelled)
	return cancelled, nil
}

func (s *bookingService) GetBooking(ctx context.Context, bookingID string) (domain.Booking, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return domain.Booking{}, newBookingError(BookingNotFound, "Booking not found")
	}
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if isRepoNotFound(err) {
			return domain.Booking{}, &BookingError{Reason: BookingNotFound, Message: "Booking not found", Err: err}
		}
		return domain.Booking{}, translateRepoError(err, "booking")
	}
	s.attachItem(ctx, &booking)
	return booking, nil
}

func (s *bookingService) ListItemBookings(ctx context.Context, query BookingListQuery) ([]domain.Booking, error) {
	itemID := strings.TrimSpace(query.ItemID)
	if itemID == "" {
		return nil, fmt.Errorf("%w: item id is required", ErrInvalidInput)
	}
	if query.Status != nil && !query.Status.Valid() {
		return nil, fmt.Errorf("%w: status must be one of confirmed, cancelled, completed", ErrInvalidInput)
	}
	if query.StartDate != nil && query.EndDate != nil && query.EndDate.Before(*query.StartDate) {
		return nil, fmt.Errorf("%w: endDate must not precede startDate", ErrInvalidInput)
	}

	bookings, err := s.bookings.ListByItem(ctx, repositories.BookingListFilter{
		ItemID:    itemID,
		Status:    query.Status,
		StartFrom: query.StartDate,
		StartTo:   query.EndDate,
	})
	if err != nil {
		return nil, translateRepoError(err, "booking")
	}
	sort.SliceStable(bookings, func(i, j int) bool {
		return bookings[i].StartTime.Before(bookings[j].StartTime)
	})

	if len(bookings) > 0 {
		item, err := s.items.FindByID(ctx, itemID)
		if err != nil {
			s.logItemLookupFailure(ctx, itemID, "", err)
		} else {
			ref := item.Ref()
			for i := range bookings {
				bookings[i].Item = &ref
			}
		}
	}
	return bookings, nil
}

// attachItem resolves the item reference. A failed lookup leaves it nil and is logged.
func (s *bookingService) attachItem(ctx context.Context, booking *domain.Booking) {
	item, err := s.items.FindByID(ctx, booking.ItemID)
	if err != nil {
		s.logItemLookupFailure(ctx, booking.ItemID, booking.ID, err)
		return
	}
	ref := item.Ref()
	booking.Item = &ref
}

func (s *bookingService) logItemLookupFailure(ctx context.Context, itemID, bookingID string, err error) {
	fields := map[string]any{
		"itemID": itemID,
		"error":  err.Error(),
	}
	if bookingID != "" {
		fields["bookingID"] = bookingID
	}
	s.logger(ctx, "booking.item_lookup_failed", fields)
}

func (s *bookingService) publish(ctx context.Context, eventType string, booking domain.Booking) {
	if s.publisher == nil {
		return
	}
	event := BookingEvent{
		Type:       eventType,
		BookingID:  booking.ID,
		ItemID:     booking.ItemID,
		StartTime:  booking.StartTime,
		EndTime:    booking.EndTime,
		Status:     booking.Status,
		OccurredAt: s.now(),
	}
	if err := s.publisher.PublishBookingEvent(ctx, event); err != nil {
		s.logger(ctx, "booking.event_publish_failed", map[string]any{
			"bookingID": booking.ID,
			"eventType": eventType,
			"error":     err.Error(),
		})
	}
}

// withinSlot reports whether the request starting at localStart and lasting length
// fits inside a single configured slot of that day.
func withinSlot(slots []domain.TimeSlot, localStart time.Time, length time.Duration) bool {
	reqStart := domain.ClockTimeOf(localStart)
	reqEnd := reqStart + domain.ClockTime(math.Ceil(length.Minutes()))
	for _, slot := range slots {
		if slot.Usable() && slot.Covers(reqStart, reqEnd) {
			return true
		}
	}
	return false
}
