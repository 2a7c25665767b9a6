package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/menuslot/api/internal/domain"
	"github.com/menuslot/api/internal/platform/pagination"
	"github.com/menuslot/api/internal/services"
)

// CategoryHandlers exposes CRUD endpoints for categories.
type CategoryHandlers struct {
	catalog services.CatalogService
}

// NewCategoryHandlers constructs a new CategoryHandlers instance.
func NewCategoryHandlers(catalog services.CatalogService) *CategoryHandlers {
	return &CategoryHandlers{catalog: catalog}
}

// Routes registers the /categories endpoints.
func (h *CategoryHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createCategory)
	r.Get("/", h.listCategories)
	r.Get("/{categoryId}", h.getCategory)
	r.Patch("/{categoryId}", h.updateCategory)
	r.Delete("/{categoryId}", h.deleteCategory)
}

type createCategoryRequest struct {
	RestaurantID  string   `json:"restaurant_id" validate:"required"`
	Name          string   `json:"name" validate:"required,max=200"`
	Image         *string  `json:"image" validate:"omitempty,max=2048"`
	Description   *string  `json:"description" validate:"omitempty,max=2000"`
	TaxApplicable *bool    `json:"tax_applicable"`
	TaxPercentage *float64 `json:"tax_percentage" validate:"omitempty,gte=0,lte=100"`
}

type updateCategoryRequest struct {
	Name          *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Image         *string  `json:"image" validate:"omitempty,max=2048"`
	Description   *string  `json:"description" validate:"omitempty,max=2000"`
	TaxApplicable *bool    `json:"tax_applicable"`
	TaxPercentage *float64 `json:"tax_percentage" validate:"omitempty,gte=0,lte=100"`
}

type categoryPayload struct {
	ID            string   `json:"id"`
	RestaurantID  string   `json:"restaurant_id"`
	Name          string   `json:"name"`
	Image         *string  `json:"image"`
	Description   *string  `json:"description"`
	TaxApplicable bool     `json:"tax_applicable"`
	TaxPercentage *float64 `json:"tax_percentage"`
	IsActive      bool     `json:"is_active"`
	CreatedAt     string   `json:"createdAt"`
	UpdatedAt     string   `json:"updatedAt"`
}

func (h *CategoryHandlers) createCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.catalog != nil, "catalog") {
		return
	}

	var req createCategoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	category, err := h.catalog.CreateCategory(ctx, services.CategoryCommand{
		RestaurantID: strings.TrimSpace(req.RestaurantID),
		Name:         req.Name,
		Image:        req.Image,
		Description:  req.Description,
		Tax:          domain.TaxRule{Applicable: req.TaxApplicable, Percentage: req.TaxPercentage},
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeData(w, http.StatusCreated, buildCategoryPayload(category))
}

func (h *CategoryHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.catalog != nil, "catalog") {
		return
	}

	opts, err := pagination.FromRequest(r, listOptions)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	page, err := h.catalog.ListCategories(ctx, services.CategoryListQuery{
		RestaurantID: r.URL.Query().Get("restaurant_id"),
		Options:      opts,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writePage(w, page, buildCategoryPayload)
}

func (h *CategoryHandlers) getCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.catalog != nil, "catalog") {
		return
	}
	category, err := h.catalog.GetCategory(ctx, chi.URLParam(r, "categoryId"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeData(w, http.StatusOK, buildCategoryPayload(category))
}

func (h *CategoryHandlers) updateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.catalog != nil, "catalog") {
		return
	}
	var req updateCategoryRequest
	if _, err := decodePatch(r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	patch := services.CategoryPatch{
		Name:        req.Name,
		Image:       req.Image,
		Description: req.Description,
	}
	if req.TaxApplicable != nil || req.TaxPercentage != nil {
		patch.Tax = &domain.TaxRule{Applicable: req.TaxApplicable, Percentage: req.TaxPercentage}
	}

	category, err := h.catalog.UpdateCategory(ctx, chi.URLParam(r, "categoryId"), patch)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeData(w, http.StatusOK, buildCategoryPayload(category))
}

func (h *CategoryHandlers) deleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !serviceReady(ctx, w, h.catalog != nil, "catalog") {
		return
	}
	category, err := h.catalog.DeactivateCategory(ctx, chi.URLParam(r, "categoryId"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeData(w, http.StatusOK, buildCategoryPayload(category))
}

func buildCategoryPayload(category domain.Category) categoryPayload {
	return categoryPayload{
		ID:            category.ID,
		RestaurantID:  category.RestaurantID,
		Name:          category.Name,
		Image:         cloneStringPointer(category.Image),
		Description:   cloneStringPointer(category.Description),
		TaxApplicable: category.Tax.Applicable != nil && *category.Tax.Applicable,
		TaxPercentage: category.Tax.Percentage,
		IsActive:      category.IsActive,
		CreatedAt:     formatTime(category.CreatedAt),
		UpdatedAt:     formatTime(category.UpdatedAt),
	}
}
