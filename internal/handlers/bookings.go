package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/menuslot/api/internal/domain"
	"github.com/menuslot/api/internal/platform/httpx"
	"github.com/menuslot/api/internal/platform/tickets"
	"github.com/menuslot/api/internal/services"
)

const missingBookingTimes = "Start time and end time are required"

// BookingHandlers exposes availability, booking, cancellation and ticket endpoints under /items.
type BookingHandlers struct {
	bookings     services.BookingService
	availability services.AvailabilityService
	tickets      *tickets.Issuer
	location     *time.Location
	bookGuards   []func(http.Handler) http.Handler
}

// BookingOption customises BookingHandlers.
type BookingOption func(*BookingHandlers)

// WithBookingLocation sets the zone used to read YYYY-MM-DD dates. Defaults to UTC.
func WithBookingLocation(loc *time.Location) BookingOption {
	return func(h *BookingHandlers) {
		if loc != nil {
			h.location = loc
		}
	}
}

// WithTicketIssuer enables the ticket endpoint.
func WithTicketIssuer(issuer *tickets.Issuer) BookingOption {
	return func(h *BookingHandlers) {
		h.tickets = issuer
	}
}

// WithBookMiddlewares wraps only the POST /{itemId}/book route, e.g. with the
// idempotency guard.
func WithBookMiddlewares(mw ...func(http.Handler) http.Handler) BookingOption {
	return func(h *BookingHandlers) {
		for _, m := range mw {
			if m != nil {
				h.bookGuards = append(h.bookGuards, m)
			}
		}
	}
}

// NewBookingHandlers constructs a new BookingHandlers instance.
func NewBookingHandlers(bookings services.BookingService, availability services.AvailabilityService, opts ...BookingOption) *BookingHandlers {
	h := &BookingHandlers{
		bookings:     bookings,
		availability: availability,
		location:     time.UTC,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the booking endpoints. It is mounted on the /items group.
func (h *BookingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/{itemId}/availability", h.getAvailability)
	r.With(h.bookGuards...).Post("/{itemId}/book", h.bookSlot)
	r.Get("/{itemId}/bookings", h.listItemBookings)
	r.Patch("/bookings/{bookingId}/cancel", h.cancelBooking)
	r.Get("/bookings/{bookingId}/ticket", h.getTicket)
}

type bookRequest struct {
	StartTime     string  `json:"startTime"`
	EndTime       string  `json:"endTime"`
	CustomerName  *string `json:"customerName" validate:"omitempty,max=200"`
	CustomerEmail *string `json:"customerEmail" validate:"omitempty,email"`
	CustomerPhone *string `json:"customerPhone" validate:"omitempty,max=40"`
}

type bookingPayload struct {
	ID            string          `json:"id"`
	ItemID        string          `json:"itemId"`
	Item          *itemRefPayload `json:"item,omitempty"`
	StartTime     string          `json:"startTime"`
	EndTime       string          `json:"endTime"`
	Status        string          `json:"status"`
	CustomerName  *string         `json:"customerName"`
	CustomerEmail *string         `json:"customerEmail"`
	CustomerPhone *string         `json:"customerPhone"`
	CreatedAt     string          `json:"createdAt"`
	UpdatedAt     string          `json:"updatedAt"`
}

type availabilityResultPayload struct {
	ItemID         string            `json:"itemId"`
	ItemName       string            `json:"itemName"`
	Date           string            `json:"date"`
	AvailableSlots []openSlotPayload `json:"availableSlots"`
	Message        string            `json:"message,omitempty"`
}

type openSlotPayload struct {
	ItemID    string `json:"itemId"`
	ItemName  string `json:"itemName"`
	Start     string `json:"start"`
	End       string `json:"end"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

func (h *BookingHandlers) getAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.availability != nil, "availability") {
		return
	}

	var date *time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		day, err := parseDate(raw, h.location)
		if err != nil {
			invalidQuery(ctx, w, "date must be YYYY-MM-DD or an ISO-8601 timestamp")
			return
		}
		date = &day
	}

	result, err := h.availability.AvailableSlots(ctx, chi.URLParam(r, "itemId"), date)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeData(w, http.StatusOK, buildAvailabilityResultPayload(result))
}

func (h *BookingHandlers) bookSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.bookings != nil, "booking") {
		return
	}

	var req bookRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.StartTime) == "" || strings.TrimSpace(req.EndTime) == "" {
		httpx.WriteError(ctx, w, httpx.NewError(string(services.BookingInvalidTimeRange), missingBookingTimes, http.StatusBadRequest))
		return
	}
	start, err := parseTimestamp(req.StartTime)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(string(services.BookingInvalidTimeRange), "startTime must be an ISO-8601 timestamp", http.StatusBadRequest))
		return
	}
	end, err := parseTimestamp(req.EndTime)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(string(services.BookingInvalidTimeRange), "endTime must be an ISO-8601 timestamp", http.StatusBadRequest))
		return
	}

	booking, err := h.bookings.Book(ctx, services.BookCommand{
		ItemID:        chi.URLParam(r, "itemId"),
		StartTime:     start,
		EndTime:       end,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeData(w, http.StatusCreated, buildBookingPayload(booking))
}

func (h *BookingHandlers) listItemBookings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.bookings != nil, "booking") {
		return
	}

	query := r.URL.Query()
	filter := services.BookingListQuery{ItemID: chi.URLParam(r, "itemId")}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status := domain.BookingStatus(strings.ToLower(raw))
		filter.Status = &status
	}
	for name, dst := range map[string]**time.Time{"startDate": &filter.StartDate, "endDate": &filter.EndDate} {
		raw := strings.TrimSpace(query.Get(name))
		if raw == "" {
			continue
		}
		value, err := parseDate(raw, h.location)
		if err != nil {
			invalidQuery(ctx, w, name+" must be YYYY-MM-DD or an ISO-8601 timestamp")
			return
		}
		*dst = &value
	}

	bookings, err := h.bookings.ListItemBookings(ctx, filter)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	payload := make([]bookingPayload, 0, len(bookings))
	for _, booking := range bookings {
		payload = append(payload, buildBookingPayload(booking))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(payload),
		"data":    payload,
	})
}

func (h *BookingHandlers) cancelBooking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.bookings != nil, "booking") {
		return
	}
	booking, err := h.bookings.Cancel(ctx, chi.URLParam(r, "bookingId"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeData(w, http.StatusOK, buildBookingPayload(booking))
}

// getTicket renders the booking ticket as a PDF (default) or a bare QR code PNG.
func (h *BookingHandlers) getTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.bookings != nil && h.tickets != nil, "ticket") {
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "pdf"
	}
	if format != "pdf" && format != "png" {
		invalidQuery(ctx, w, "format must be pdf or png")
		return
	}

	booking, err := h.bookings.GetBooking(ctx, chi.URLParam(r, "bookingId"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if booking.Status == domain.BookingCancelled {
		writeServiceError(ctx, w, fmt.Errorf("%w: cancelled bookings have no ticket", services.ErrInvalidState))
		return
	}

	var (
		body        []byte
		contentType string
	)
	switch format {
	case "png":
		body, err = h.tickets.QRCode(booking)
		contentType = "image/png"
	default:
		body, err = h.tickets.PDF(booking)
		contentType = "application/pdf"
	}
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("ticket_render_failed", "failed to render ticket", http.StatusInternalServerError))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", "booking-"+booking.ID+"."+format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func buildBookingPayload(booking domain.Booking) bookingPayload {
	payload := bookingPayload{
		ID:            booking.ID,
		ItemID:        booking.ItemID,
		StartTime:     formatTime(booking.StartTime),
		EndTime:       formatTime(booking.EndTime),
		Status:        string(booking.Status),
		CustomerName:  cloneStringPointer(booking.Customer.Name),
		CustomerEmail: cloneStringPointer(booking.Customer.Email),
		CustomerPhone: cloneStringPointer(booking.Customer.Phone),
		CreatedAt:     formatTime(booking.CreatedAt),
		UpdatedAt:     formatTime(booking.UpdatedAt),
	}
	if booking.Item != nil {
		payload.Item = buildItemRefPayload(*booking.Item)
	}
	return payload
}

func buildAvailabilityResultPayload(result domain.AvailabilityResult) availabilityResultPayload {
	payload := availabilityResultPayload{
		ItemID:         result.ItemID,
		ItemName:       result.ItemName,
		Date:           result.Date.Format("2006-01-02"),
		AvailableSlots: make([]openSlotPayload, 0, len(result.AvailableSlots)),
		Message:        result.Message,
	}
	for _, slot := range result.AvailableSlots {
		payload.AvailableSlots = append(payload.AvailableSlots, openSlotPayload{
			ItemID:    result.ItemID,
			ItemName:  result.ItemName,
			Start:     formatTime(slot.Start),
			End:       formatTime(slot.End),
			StartTime: slot.StartTime.String(),
			EndTime:   slot.EndTime.String(),
		})
	}
	return payload
}
