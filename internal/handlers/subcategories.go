package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/menuslot/api/internal/domain"
	"github.com/menuslot/api/internal/platform/pagination"
	"github.com/menuslot/api/internal/services"
)

// SubcategoryHandlers exposes CRUD endpoints for subcategories.
type SubcategoryHandlers struct {
	catalog services.CatalogService
}

// NewSubcategoryHandlers constructs a new SubcategoryHandlers instance.
func NewSubcategoryHandlers(catalog services.CatalogService) *SubcategoryHandlers {
	return &SubcategoryHandlers{catalog: catalog}
}

// Routes registers the /subcategories endpoints.
func (h *SubcategoryHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createSubcategory)
	r.Get("/", h.listSubcategories)
	r.Get("/{subcategoryId}", h.getSubcategory)
	r.Patch("/{subcategoryId}", h.updateSubcategory)
	r.Delete("/{subcategoryId}", h.deleteSubcategory)
}

type createSubcategoryRequest struct {
	Category      string   `json:"category" validate:"required"`
	Name          string   `json:"name" validate:"required,max=200"`
	Image         *string  `json:"image" validate:"omitempty,max=2048"`
	Description   *string  `json:"description" validate:"omitempty,max=2000"`
	TaxApplicable *bool    `json:"tax_applicable"`
	TaxPercentage *float64 `json:"tax_percentage" validate:"omitempty,gte=0,lte=100"`
}

type updateSubcategoryRequest struct {
	Name          *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Image         *string  `json:"image" validate:"omitempty,max=2048"`
	Description   *string  `json:"description" validate:"omitempty,max=2000"`
	TaxApplicable *bool    `json:"tax_applicable"`
	TaxPercentage *float64 `json:"tax_percentage" validate:"omitempty,gte=0,lte=100"`
}

// subcategoryPayload leaves the tax fields null when the subcategory inherits.
type subcategoryPayload struct {
	ID            string   `json:"id"`
	Category      string   `json:"category"`
	Name          string   `json:"name"`
	Image         *string  `json:"image"`
	Description   *string  `json:"description"`
	TaxApplicable *bool    `json:"tax_applicable"`
	TaxPercentage *float64 `json:"tax_percentage"`
	IsActive      bool     `json:"is_active"`
	CreatedAt     string   `json:"createdAt"`
	UpdatedAt     string   `json:"updatedAt"`
}

func (h *SubcategoryHandlers) createSubcategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.catalog != nil, "catalog") {
		return
	}

	var req createSubcategoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	sub, err := h.catalog.CreateSubcategory(ctx, services.SubcategoryCommand{
		CategoryID:  strings.TrimSpace(req.Category),
		Name:        req.Name,
		Image:       req.Image,
		Description: req.Description,
		Tax:         domain.TaxRule{Applicable: req.TaxApplicable, Percentage: req.TaxPercentage},
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeData(w, http.StatusCreated, buildSubcategoryPayload(sub))
}

func (h *SubcategoryHandlers) listSubcategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.catalog != nil, "catalog") {
		return
	}

	opts, err := pagination.FromRequest(r, listOptions)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	page, err := h.catalog.ListSubcategories(ctx, services.SubcategoryListQuery{
		CategoryID: r.URL.Query().Get("category"),
		Options:    opts,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writePage(w, page, buildSubcategoryPayload)
}

func (h *SubcategoryHandlers) getSubcategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.catalog != nil, "catalog") {
		return
	}
	sub, err := h.catalog.GetSubcategory(ctx, chi.URLParam(r, "subcategoryId"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeData(w, http.StatusOK, buildSubcategoryPayload(sub))
}

// updateSubcategory treats "tax_applicable": null as a request to inherit the category's tax again.
func (h *SubcategoryHandlers) updateSubcategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.catalog != nil, "catalog") {
		return
	}

	var req updateSubcategoryRequest
	raw, err := decodePatch(r, &req)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	patch := services.SubcategoryPatch{
		Name:        req.Name,
		Image:       req.Image,
		Description: req.Description,
	}
	applicableRaw, hasApplicable := raw["tax_applicable"]
	_, hasPercentage := raw["tax_percentage"]
	switch {
	case hasApplicable && isJSONNull(applicableRaw):
		patch.TaxSet = true
	case hasApplicable || hasPercentage:
		patch.TaxSet = true
		patch.Tax = domain.TaxRule{Applicable: req.TaxApplicable, Percentage: req.TaxPercentage}
	}

	sub, err := h.catalog.UpdateSubcategory(ctx, chi.URLParam(r, "subcategoryId"), patch)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeData(w, http.StatusOK, buildSubcategoryPayload(sub))
}

func (h *SubcategoryHandlers) deleteSubcategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.catalog != nil, "catalog") {
		return
	}
	sub, err := h.catalog.DeactivateSubcategory(ctx, chi.URLParam(r, "subcategoryId"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeData(w, http.StatusOK, buildSubcategoryPayload(sub))
}

func buildSubcategoryPayload(sub domain.Subcategory) subcategoryPayload {
	return subcategoryPayload{
		ID:            sub.ID,
		Category:      sub.CategoryID,
		Name:          sub.Name,
		Image:         cloneStringPointer(sub.Image),
		Description:   cloneStringPointer(sub.Description),
		TaxApplicable: sub.Tax.Applicable,
		TaxPercentage: sub.Tax.Percentage,
		IsActive:      sub.IsActive,
		CreatedAt:     formatTime(sub.CreatedAt),
		UpdatedAt:     formatTime(sub.UpdatedAt),
	}
}
