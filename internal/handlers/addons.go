package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/menuslot/api/internal/domain"
	"github.com/menuslot/api/internal/platform/pagination"
	"github.com/menuslot/api/internal/services"
)

// AddOnHandlers exposes CRUD endpoints for add-ons.
type AddOnHandlers struct {
	catalog services.CatalogService
}

// NewAddOnHandlers constructs a new AddOnHandlers instance.
func NewAddOnHandlers(catalog services.CatalogService) *AddOnHandlers {
	return &AddOnHandlers{catalog: catalog}
}

// Routes registers the /addons endpoints.
func (h *AddOnHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createAddOn)
	r.Get("/", h.listAddOns)
	r.Get("/{addonId}", h.getAddOn)
	r.Patch("/{addonId}", h.updateAddOn)
	r.Delete("/{addonId}", h.deleteAddOn)
}

type createAddOnRequest struct {
	Item        string   `json:"item" validate:"required"`
	Name        string   `json:"name" validate:"required,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	IsMandatory bool     `json:"isMandatory"`
	Group       *string  `json:"group" validate:"omitempty,max=100"`
}

type updateAddOnRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	IsMandatory *bool    `json:"isMandatory"`
	Group       *string  `json:"group" validate:"omitempty,max=100"`
}

type addOnPayload struct {
	ID          string          `json:"id"`
	Item        *itemRefPayload `json:"item"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Price       float64         `json:"price"`
	IsMandatory bool            `json:"isMandatory"`
	Group       *string         `json:"group"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt"`
}

type itemRefPayload struct {
	ID          string  `json:"id"`
	Name        string  `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (h *AddOnHandlers) createAddOn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.catalog != nil, "catalog") {
		return
	}

	var req createAddOnRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	view, err := h.catalog.CreateAddOn(ctx, services.AddOnCommand{
		ItemID:      strings.TrimSpace(req.Item),
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		IsMandatory: req.IsMandatory,
		Group:       req.Group,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeData(w, http.StatusCreated, buildAddOnPayload(view))
}

func (h *AddOnHandlers) listAddOns(w http.ResponseWriter, r *http.Request) {
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
	page, err := h.catalog.ListAddOns(ctx, services.AddOnListQuery{
		ItemID:  query.Get("item"),
		Group:   query.Get("group"),
		Options: opts,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writePage(w, page, buildAddOnPayload)
}

func (h *AddOnHandlers) getAddOn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.catalog != nil, "catalog") {
		return
	}
	view, err := h.catalog.GetAddOn(ctx, chi.URLParam(r, "addonId"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeData(w, http.StatusOK, buildAddOnPayload(view))
}

func (h *AddOnHandlers) updateAddOn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.catalog != nil, "catalog") {
		return
	}

	var req updateAddOnRequest
	if _, err := decodePatch(r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	view, err := h.catalog.UpdateAddOn(ctx, chi.URLParam(r, "addonId"), services.AddOnPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		IsMandatory: req.IsMandatory,
		Group:       req.Group,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeData(w, http.StatusOK, buildAddOnPayload(view))
}

func (h *AddOnHandlers) deleteAddOn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.catalog != nil, "catalog") {
		return
	}
	view, err := h.catalog.DeactivateAddOn(ctx, chi.URLParam(r, "addonId"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeData(w, http.StatusOK, buildAddOnPayload(view))
}

func buildAddOnPayload(view services.AddOnView) addOnPayload {
	addOn := view.AddOn
	payload := addOnPayload{
		ID:          addOn.ID,
		Item:        &itemRefPayload{ID: addOn.ItemID},
		Name:        addOn.Name,
		Description: cloneStringPointer(addOn.Description),
		Price:       addOn.Price,
		IsMandatory: addOn.IsMandatory,
		Group:       cloneStringPointer(addOn.Group),
		IsActive:    addOn.IsActive,
		CreatedAt:   formatTime(addOn.CreatedAt),
		UpdatedAt:   formatTime(addOn.UpdatedAt),
	}
	if view.Item != nil {
		payload.Item = buildItemRefPayload(*view.Item)
	}
	return payload
}

func buildItemRefPayload(ref domain.ItemRef) *itemRefPayload {
	return &itemRefPayload{
		ID:          ref.ID,
		Name:        ref.Name,
		Description: cloneStringPointer(ref.Description),
	}
}
