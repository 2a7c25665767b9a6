package handlers

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	domain "github.com/menuslot/api/internal/domain"
	"github.com/menuslot/api/internal/platform/tickets"
	"github.com/menuslot/api/internal/services"
)

func bookingRouter(bookings *stubBookingService, availability *stubAvailabilityService, opts ...BookingOption) http.Handler {
	return NewRouter(WithBookingRoutes(NewBookingHandlers(bookings, availability, opts...).Routes))
}

func confirmedBooking() domain.Booking {
	name := "Ada"
	desc := "Indoor court"
	return domain.Booking{
		ID:        "bk-1",
		ItemID:    "item-1",
		Item:      &domain.ItemRef{ID: "item-1", Name: "Court", Description: &desc},
		StartTime: time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 3, 3, 11, 0, 0, 0, time.UTC),
		Status:    domain.BookingConfirmed,
		Customer:  domain.Customer{Name: &name},
		CreatedAt: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestBookingHandlersBook(t *testing.T) {
	var captured services.BookCommand
	bookings := &stubBookingService{
		bookFn: func(_ context.Context, cmd services.BookCommand) (domain.Booking, error) {
			captured = cmd
			return confirmedBooking(), nil
		},
	}
	rr := serve(t, bookingRouter(bookings, nil), http.MethodPost, "/api/v1/items/item-1/book",
		`{"startTime":"2025-03-03T10:00:00Z","endTime":"2025-03-03T11:00:00.000Z","customerName":"Ada","customerEmail":"ada@example.com"}`)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.ItemID != "item-1" || !captured.EndTime.Equal(time.Date(2025, 3, 3, 11, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected command %+v", captured)
	}
	if captured.CustomerEmail == nil || *captured.CustomerEmail != "ada@example.com" || captured.CustomerPhone != nil {
		t.Fatalf("unexpected customer %+v", captured)
	}

	data := decodeEnvelope(t, rr)["data"].(map[string]any)
	if data["status"] != "confirmed" || data["startTime"] != "2025-03-03T10:00:00Z" {
		t.Fatalf("unexpected booking %v", data)
	}
	if item := data["item"].(map[string]any); item["name"] != "Court" {
		t.Fatalf("expected embedded item, got %v", item)
	}
	if _, ok := data["customerPhone"]; !ok || data["customerPhone"] != nil {
		t.Fatalf("expected null customerPhone, got %v", data["customerPhone"])
	}
}

func TestBookingHandlersBookRejectsBadRequests(t *testing.T) {
	called := false
	bookings := &stubBookingService{
		bookFn: func(context.Context, services.BookCommand) (domain.Booking, error) {
			called = true
			return domain.Booking{}, nil
		},
	}
	router := bookingRouter(bookings, nil)

	tests := []struct {
		name    string
		body    string
		code    string
		message string
	}{
		{name: "missing end", body: `{"startTime":"2025-03-03T10:00:00Z"}`, code: "invalid_time_range", message: missingBookingTimes},
		{name: "empty times", body: `{"startTime":"","endTime":""}`, code: "invalid_time_range", message: missingBookingTimes},
		{name: "bad start", body: `{"startTime":"tomorrow","endTime":"2025-03-03T11:00:00Z"}`, code: "invalid_time_range"},
		{name: "bad email", body: `{"startTime":"2025-03-03T10:00:00Z","endTime":"2025-03-03T11:00:00Z","customerEmail":"nope"}`, code: "invalid_request"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := serve(t, router, http.MethodPost, "/api/v1/items/item-1/book", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}
			body := decodeEnvelope(t, rr)
			if body["error"] != tc.code {
				t.Fatalf("expected code %s, got %v", tc.code, body["error"])
			}
			if tc.message != "" && body["message"] != tc.message {
				t.Fatalf("expected message %q, got %v", tc.message, body["message"])
			}
		})
	}
	if called {
		t.Fatalf("service must not be called for rejected requests")
	}
}

func TestBookingHandlersBookServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "conflict", err: &services.BookingError{Reason: services.BookingSlotConflict, Message: "Time slot is already booked"}, status: http.StatusBadRequest, code: "slot_conflict"},
		{name: "slot mismatch", err: &services.BookingError{Reason: services.BookingSlotMismatch, Message: "Requested time does not match any available time slot"}, status: http.StatusBadRequest, code: "slot_mismatch"},
		{name: "not bookable", err: &services.BookingError{Reason: services.BookingNotBookable, Message: "This item is not bookable"}, status: http.StatusBadRequest, code: "not_bookable"},
		{name: "item missing", err: &services.BookingError{Reason: services.BookingItemNotFound, Message: "Item not found"}, status: http.StatusNotFound, code: "item_not_found"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bookings := &stubBookingService{
				bookFn: func(context.Context, services.BookCommand) (domain.Booking, error) {
					return domain.Booking{}, tc.err
				},
			}
			rr := serve(t, bookingRouter(bookings, nil), http.MethodPost, "/api/v1/items/item-1/book",
				`{"startTime":"2025-03-03T10:00:00Z","endTime":"2025-03-03T11:00:00Z"}`)
			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rr.Code)
			}
			body := decodeEnvelope(t, rr)
			if body["error"] != tc.code {
				t.Fatalf("expected code %s, got %v", tc.code, body["error"])
			}
			if body["message"] != tc.err.(*services.BookingError).Message {
				t.Fatalf("unexpected message %v", body["message"])
			}
		})
	}
}

func TestBookingHandlersBookRunsGuards(t *testing.T) {
	guarded := 0
	guard := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			guarded++
			next.ServeHTTP(w, r)
		})
	}
	bookings := &stubBookingService{
		bookFn: func(context.Context, services.BookCommand) (domain.Booking, error) { return confirmedBooking(), nil },
	}
	router := bookingRouter(bookings, &stubAvailabilityService{}, WithBookMiddlewares(guard, nil))

	serve(t, router, http.MethodPost, "/api/v1/items/item-1/book", `{"startTime":"2025-03-03T10:00:00Z","endTime":"2025-03-03T11:00:00Z"}`)
	serve(t, router, http.MethodGet, "/api/v1/items/item-1/availability", "")
	if guarded != 1 {
		t.Fatalf("expected guard on the book route only, ran %d times", guarded)
	}
}

func TestBookingHandlersAvailability(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	var gotDate *time.Time
	availability := &stubAvailabilityService{
		slotsFn: func(_ context.Context, itemID string, date *time.Time) (domain.AvailabilityResult, error) {
			gotDate = date
			day := time.Date(2025, 3, 3, 0, 0, 0, 0, loc)
			return domain.AvailabilityResult{
				ItemID:   itemID,
				ItemName: "Court",
				Date:     day,
				AvailableSlots: []domain.OpenSlot{{
					Start:     time.Date(2025, 3, 3, 10, 0, 0, 0, loc),
					End:       time.Date(2025, 3, 3, 11, 0, 0, 0, loc),
					StartTime: domain.MustClockTime("10:00"),
					EndTime:   domain.MustClockTime("11:00"),
				}},
			}, nil
		},
	}
	router := bookingRouter(&stubBookingService{}, availability, WithBookingLocation(loc))

	rr := serve(t, router, http.MethodGet, "/api/v1/items/item-1/availability?date=2025-03-03", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotDate == nil || !gotDate.Equal(time.Date(2025, 3, 3, 0, 0, 0, 0, loc)) {
		t.Fatalf("expected date in configured zone, got %v", gotDate)
	}

	data := decodeEnvelope(t, rr)["data"].(map[string]any)
	if data["date"] != "2025-03-03" {
		t.Fatalf("unexpected date %v", data["date"])
	}
	slots := data["availableSlots"].([]any)
	slot := slots[0].(map[string]any)
	if slot["startTime"] != "10:00" || slot["start"] != "2025-03-03T08:00:00Z" || slot["itemName"] != "Court" {
		t.Fatalf("unexpected slot %v", slot)
	}

	serve(t, router, http.MethodGet, "/api/v1/items/item-1/availability", "")
	if gotDate != nil {
		t.Fatalf("expected nil date when omitted")
	}

	if rr := serve(t, router, http.MethodGet, "/api/v1/items/item-1/availability?date=03/03/2025", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected bad date rejected, got %d", rr.Code)
	}
}

func TestBookingHandlersListItemBookings(t *testing.T) {
	var captured services.BookingListQuery
	bookings := &stubBookingService{
		listFn: func(_ context.Context, q services.BookingListQuery) ([]domain.Booking, error) {
			captured = q
			return []domain.Booking{confirmedBooking()}, nil
		},
	}
	router := bookingRouter(bookings, nil)

	rr := serve(t, router, http.MethodGet, "/api/v1/items/item-1/bookings?status=Confirmed&startDate=2025-03-01&endDate=2025-03-31T23:59:59Z", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.ItemID != "item-1" || captured.Status == nil || *captured.Status != domain.BookingConfirmed {
		t.Fatalf("unexpected filter %+v", captured)
	}
	if captured.StartDate == nil || !captured.StartDate.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start date %v", captured.StartDate)
	}
	if captured.EndDate == nil || !captured.EndDate.Equal(time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("unexpected end date %v", captured.EndDate)
	}

	body := decodeEnvelope(t, rr)
	if body["count"] != float64(1) || len(body["data"].([]any)) != 1 {
		t.Fatalf("unexpected list body %v", body)
	}

	if rr := serve(t, router, http.MethodGet, "/api/v1/items/item-1/bookings?endDate=soon", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected bad endDate rejected, got %d", rr.Code)
	}
}

func TestBookingHandlersCancel(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "cancelled", status: http.StatusOK},
		{name: "missing", err: &services.BookingError{Reason: services.BookingNotFound, Message: "Booking not found"}, status: http.StatusNotFound, code: "booking_not_found"},
		{name: "already cancelled", err: &services.BookingError{Reason: services.BookingAlreadyCancelled, Message: "Booking is already cancelled"}, status: http.StatusBadRequest, code: "already_cancelled"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bookings := &stubBookingService{
				cancelFn: func(_ context.Context, id string) (domain.Booking, error) {
					if tc.err != nil {
						return domain.Booking{}, tc.err
					}
					booking := confirmedBooking()
					booking.Status = domain.BookingCancelled
					return booking, nil
				},
			}
			rr := serve(t, bookingRouter(bookings, nil), http.MethodPatch, "/api/v1/items/bookings/bk-1/cancel", "")
			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rr.Code)
			}
			body := decodeEnvelope(t, rr)
			if tc.code == "" {
				if data := body["data"].(map[string]any); data["status"] != "cancelled" {
					t.Fatalf("unexpected data %v", data)
				}
				return
			}
			if body["error"] != tc.code {
				t.Fatalf("expected code %s, got %v", tc.code, body["error"])
			}
		})
	}
}

func TestBookingHandlersTicket(t *testing.T) {
	booking := confirmedBooking()
	bookings := &stubBookingService{
		getFn: func(_ context.Context, id string) (domain.Booking, error) {
			if id == "bk-cancelled" {
				cancelled := confirmedBooking()
				cancelled.ID = id
				cancelled.Status = domain.BookingCancelled
				return cancelled, nil
			}
			return booking, nil
		},
	}
	issuer := tickets.NewIssuer("secret", time.UTC)
	router := bookingRouter(bookings, nil, WithTicketIssuer(issuer))

	rr := serve(t, router, http.MethodGet, "/api/v1/items/bookings/bk-1/ticket", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected pdf content type, got %s", ct)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected pdf body")
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "booking-bk-1.pdf") {
		t.Fatalf("unexpected content disposition %s", cd)
	}

	rr = serve(t, router, http.MethodGet, "/api/v1/items/bookings/bk-1/ticket?format=PNG", "")
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("expected png ticket, got %d %s", rr.Code, rr.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("expected png body")
	}

	if rr := serve(t, router, http.MethodGet, "/api/v1/items/bookings/bk-1/ticket?format=svg", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected unknown format rejected, got %d", rr.Code)
	}
	rr = serve(t, router, http.MethodGet, "/api/v1/items/bookings/bk-cancelled/ticket", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected cancelled booking rejected, got %d", rr.Code)
	}
	if body := decodeEnvelope(t, rr); body["error"] != "invalid_state" {
		t.Fatalf("unexpected error %v", body["error"])
	}
}

func TestBookingHandlersTicketDisabled(t *testing.T) {
	rr := serve(t, bookingRouter(&stubBookingService{}, nil), http.MethodGet, "/api/v1/items/bookings/bk-1/ticket", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}
