package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/menuslot/api/internal/domain"
	"github.com/menuslot/api/internal/platform/pagination"
	"github.com/menuslot/api/internal/services"
)

// ItemHandlers exposes item CRUD and the price endpoint.
type ItemHandlers struct {
	catalog services.CatalogService
	quotes  services.QuoteService
}

// NewItemHandlers constructs a new ItemHandlers instance.
func NewItemHandlers(catalog services.CatalogService, quotes services.QuoteService) *ItemHandlers {
	return &ItemHandlers{catalog: catalog, quotes: quotes}
}

// Routes registers the /items endpoints.
func (h *ItemHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createItem)
	r.Get("/", h.listItems)
	r.Get("/{itemId}", h.getItem)
	r.Get("/{itemId}/price", h.getItemPrice)
	r.Patch("/{itemId}", h.updateItem)
	r.Delete("/{itemId}", h.deleteItem)
}

type timeSlotRequest struct {
	Start string `json:"start" validate:"required,hhmm"`
	End   string `json:"end" validate:"required,hhmm"`
}

type availabilityRequest struct {
	AvailableDays []string          `json:"availableDays" validate:"omitempty,dive,weekday"`
	TimeSlots     []timeSlotRequest `json:"timeSlots" validate:"omitempty,dive"`
}

type createItemRequest struct {
	Name         string                  `json:"name" validate:"required,max=200"`
	Description  *string                 `json:"description" validate:"omitempty,max=2000"`
	Image        *string                 `json:"image" validate:"omitempty,max=2048"`
	Category     *string                 `json:"category"`
	Subcategory  *string                 `json:"subcategory"`
	Pricing      *domain.PricingDocument `json:"pricing" validate:"required"`
	Availability *availabilityRequest    `json:"availability"`
}

type updateItemRequest struct {
	Name         *string                 `json:"name" validate:"omitempty,min=1,max=200"`
	Description  *string                 `json:"description" validate:"omitempty,max=2000"`
	Image        *string                 `json:"image" validate:"omitempty,max=2048"`
	Category     *string                 `json:"category"`
	Subcategory  *string                 `json:"subcategory"`
	Pricing      *domain.PricingDocument `json:"pricing"`
	Availability *availabilityRequest    `json:"availability"`
}

type itemPayload struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	Description     *string                `json:"description"`
	Image           *string                `json:"image"`
	IsActive        bool                   `json:"is_active"`
	CategoryID      *string                `json:"categoryId"`
	SubcategoryID   *string                `json:"subcategoryId"`
	Category        *categoryPayload       `json:"category,omitempty"`
	Subcategory     *subcategoryPayload    `json:"subcategory,omitempty"`
	Pricing         domain.PricingDocument `json:"pricing"`
	Availability    availabilityPayload    `json:"availability"`
	CalculatedPrice *float64               `json:"calculatedPrice,omitempty"`
	CreatedAt       string                 `json:"createdAt"`
	UpdatedAt       string                 `json:"updatedAt"`
}

type availabilityPayload struct {
	AvailableDays []string          `json:"availableDays"`
	TimeSlots     []timeSlotPayload `json:"timeSlots"`
}

type timeSlotPayload struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (h *ItemHandlers) createItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.catalog != nil, "catalog") {
		return
	}

	var req createItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	cmd := services.ItemCommand{
		Name:          req.Name,
		Description:   req.Description,
		Image:         req.Image,
		CategoryID:    strings.TrimSpace(derefString(req.Category)),
		SubcategoryID: strings.TrimSpace(derefString(req.Subcategory)),
		Pricing:       *req.Pricing,
	}
	if req.Availability != nil {
		cmd.AvailableDays = req.Availability.AvailableDays
		cmd.TimeSlots = timeSlotInputs(req.Availability.TimeSlots)
	}

	view, err := h.catalog.CreateItem(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeData(w, http.StatusCreated, buildItemPayload(view))
}

func (h *ItemHandlers) listItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.catalog != nil, "catalog") {
		return
	}

	opts, err := pagination.FromRequest(r, listOptions)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	query := r.URL.Query()
	filter := services.ItemListQuery{
		CategoryID:    query.Get("category"),
		SubcategoryID: query.Get("subcategory"),
		ActiveOnly:    true,
		Search:        query.Get("search"),
		Options:       opts,
	}
	if raw := strings.TrimSpace(query.Get("activeOnly")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			invalidQuery(ctx, w, "activeOnly must be true or false")
			return
		}
		filter.ActiveOnly = active
	}
	if raw := strings.TrimSpace(query.Get("taxApplicable")); raw != "" {
		applicable, err := strconv.ParseBool(raw)
		if err != nil {
			invalidQuery(ctx, w, "taxApplicable must be true or false")
			return
		}
		filter.TaxApplicable = &applicable
	}
	for name, dst := range map[string]**float64{"minPrice": &filter.MinPrice, "maxPrice": &filter.MaxPrice} {
		raw := strings.TrimSpace(query.Get(name))
		if raw == "" {
			continue
		}
		value, ok := parseNonNegative(raw)
		if !ok {
			invalidQuery(ctx, w, name+" must be a non-negative number")
			return
		}
		*dst = &value
	}

	page, err := h.catalog.ListItems(ctx, filter)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writePage(w, page, buildItemPayload)
}

func (h *ItemHandlers) getItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.catalog != nil, "catalog") {
		return
	}
	view, err := h.catalog.GetItem(ctx, chi.URLParam(r, "itemId"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeData(w, http.StatusOK, buildItemPayload(view))
}

func (h *ItemHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.catalog != nil, "catalog") {
		return
	}

	var req updateItemRequest
	if _, err := decodePatch(r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	patch := services.ItemPatch{
		Name:          req.Name,
		Description:   req.Description,
		Image:         req.Image,
		CategoryID:    req.Category,
		SubcategoryID: req.Subcategory,
		Pricing:       req.Pricing,
	}
	if req.Availability != nil {
		if req.Availability.AvailableDays != nil {
			days := req.Availability.AvailableDays
			patch.AvailableDays = &days
		}
		if req.Availability.TimeSlots != nil {
			slots := timeSlotInputs(req.Availability.TimeSlots)
			patch.TimeSlots = &slots
		}
	}

	view, err := h.catalog.UpdateItem(ctx, chi.URLParam(r, "itemId"), patch)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeData(w, http.StatusOK, buildItemPayload(view))
}

func (h *ItemHandlers) deleteItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.catalog != nil, "catalog") {
		return
	}
	view, err := h.catalog.DeactivateItem(ctx, chi.URLParam(r, "itemId"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeData(w, http.StatusOK, buildItemPayload(view))
}

func (h *ItemHandlers) getItemPrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.quotes != nil, "quote") {
		return
	}

	query := r.URL.Query()
	var params domain.PriceParams
	if raw := strings.TrimSpace(query.Get("duration")); raw != "" {
		duration, ok := parseNonNegative(raw)
		if !ok {
			invalidQuery(ctx, w, "duration must be a non-negative number")
			return
		}
		params.Duration = &duration
	}
	if raw := strings.TrimSpace(query.Get("requestTime")); raw != "" {
		requestTime, err := parseTimestamp(raw)
		if err != nil {
			invalidQuery(ctx, w, "requestTime must be an ISO-8601 timestamp")
			return
		}
		params.RequestTime = &requestTime
	}

	quote, err := h.quotes.Quote(ctx, chi.URLParam(r, "itemId"), params)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeData(w, http.StatusOK, buildQuotePayload(quote))
}

func buildItemPayload(view services.ItemView) itemPayload {
	item := view.Item
	payload := itemPayload{
		ID:              item.ID,
		Name:            item.Name,
		Description:     cloneStringPointer(item.Description),
		Image:           cloneStringPointer(item.Image),
		IsActive:        item.IsActive,
		Availability:    buildAvailabilityPayload(item.Availability),
		CalculatedPrice: view.CalculatedPrice,
		CreatedAt:       formatTime(item.CreatedAt),
		UpdatedAt:       formatTime(item.UpdatedAt),
	}
	if item.Pricing != nil {
		payload.Pricing = domain.EncodePricing(item.Pricing)
	}
	if id := item.Parent.CategoryID(); id != "" {
		payload.CategoryID = &id
	}
	if id := item.Parent.SubcategoryID(); id != "" {
		payload.SubcategoryID = &id
	}
	if view.Category != nil {
		category := buildCategoryPayload(*view.Category)
		payload.Category = &category
	}
	if view.Subcategory != nil {
		sub := buildSubcategoryPayload(*view.Subcategory)
		payload.Subcategory = &sub
	}
	return payload
}

func buildAvailabilityPayload(availability domain.Availability) availabilityPayload {
	payload := availabilityPayload{
		AvailableDays: make([]string, 0, len(availability.Days)),
		TimeSlots:     make([]timeSlotPayload, 0, len(availability.Slots)),
	}
	for _, day := range availability.Days {
		payload.AvailableDays = append(payload.AvailableDays, day.String())
	}
	for _, slot := range availability.Slots {
		payload.TimeSlots = append(payload.TimeSlots, timeSlotPayload{Start: slot.Start.String(), End: slot.End.String()})
	}
	return payload
}

func timeSlotInputs(slots []timeSlotRequest) []services.TimeSlotInput {
	if slots == nil {
		return nil
	}
	out := make([]services.TimeSlotInput, 0, len(slots))
	for _, slot := range slots {
		out = append(out, services.TimeSlotInput{Start: strings.TrimSpace(slot.Start), End: strings.TrimSpace(slot.End)})
	}
	return out
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// parseNonNegative accepts finite numbers >= 0. ParseFloat alone lets NaN and Inf through.
func parseNonNegative(raw string) (float64, bool) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0, false
	}
	return value, true
}
