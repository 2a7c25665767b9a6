package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	domain "github.com/menuslot/api/internal/domain"
	"github.com/menuslot/api/internal/services"
)

type stubCatalogService struct {
	createCategoryFn      func(context.Context, services.CategoryCommand) (domain.Category, error)
	listCategoriesFn      func(context.Context, services.CategoryListQuery) (domain.Page[domain.Category], error)
	getCategoryFn         func(context.Context, string) (domain.Category, error)
	updateCategoryFn      func(context.Context, string, services.CategoryPatch) (domain.Category, error)
	deactivateCategoryFn  func(context.Context, string) (domain.Category, error)
	createSubcategoryFn   func(context.Context, services.SubcategoryCommand) (domain.Subcategory, error)
	updateSubcategoryFn   func(context.Context, string, services.SubcategoryPatch) (domain.Subcategory, error)
	createItemFn          func(context.Context, services.ItemCommand) (services.ItemView, error)
	listItemsFn           func(context.Context, services.ItemListQuery) (domain.Page[services.ItemView], error)
	getItemFn             func(context.Context, string) (services.ItemView, error)
	updateItemFn          func(context.Context, string, services.ItemPatch) (services.ItemView, error)
	createAddOnFn         func(context.Context, services.AddOnCommand) (services.AddOnView, error)
	listAddOnsFn          func(context.Context, services.AddOnListQuery) (domain.Page[services.AddOnView], error)
	deactivateAddOnFn     func(context.Context, string) (services.AddOnView, error)
	listSubcategoriesFn   func(context.Context, services.SubcategoryListQuery) (domain.Page[domain.Subcategory], error)
	getSubcategoryFn      func(context.Context, string) (domain.Subcategory, error)
	deactivateSubFn       func(context.Context, string) (domain.Subcategory, error)
	deactivateItemFn      func(context.Context, string) (services.ItemView, error)
	getAddOnFn            func(context.Context, string) (services.AddOnView, error)
	updateAddOnFn         func(context.Context, string, services.AddOnPatch) (services.AddOnView, error)
}

var _ services.CatalogService = (*stubCatalogService)(nil)

func (s *stubCatalogService) CreateCategory(ctx context.Context, cmd services.CategoryCommand) (domain.Category, error) {
	if s.createCategoryFn != nil {
		return s.createCategoryFn(ctx, cmd)
	}
	return domain.Category{}, nil
}

func (s *stubCatalogService) ListCategories(ctx context.Context, q services.CategoryListQuery) (domain.Page[domain.Category], error) {
	if s.listCategoriesFn != nil {
		return s.listCategoriesFn(ctx, q)
	}
	return domain.Page[domain.Category]{}, nil
}

func (s *stubCatalogService) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	if s.getCategoryFn != nil {
		return s.getCategoryFn(ctx, id)
	}
	return domain.Category{}, nil
}

func (s *stubCatalogService) UpdateCategory(ctx context.Context, id string, patch services.CategoryPatch) (domain.Category, error) {
	if s.updateCategoryFn != nil {
		return s.updateCategoryFn(ctx, id, patch)
	}
	return domain.Category{}, nil
}

func (s *stubCatalogService) DeactivateCategory(ctx context.Context, id string) (domain.Category, error) {
	if s.deactivateCategoryFn != nil {
		return s.deactivateCategoryFn(ctx, id)
	}
	return domain.Category{}, nil
}

func (s *stubCatalogService) CreateSubcategory(ctx context.Context, cmd services.SubcategoryCommand) (domain.Subcategory, error) {
	if s.createSubcategoryFn != nil {
		return s.createSubcategoryFn(ctx, cmd)
	}
	return domain.Subcategory{}, nil
}

func (s *stubCatalogService) ListSubcategories(ctx context.Context, q services.SubcategoryListQuery) (domain.Page[domain.Subcategory], error) {
	if s.listSubcategoriesFn != nil {
		return s.listSubcategoriesFn(ctx, q)
	}
	return domain.Page[domain.Subcategory]{}, nil
}

func (s *stubCatalogService) GetSubcategory(ctx context.Context, id string) (domain.Subcategory, error) {
	if s.getSubcategoryFn != nil {
		return s.getSubcategoryFn(ctx, id)
	}
	return domain.Subcategory{}, nil
}

func (s *stubCatalogService) UpdateSubcategory(ctx context.Context, id string, patch services.SubcategoryPatch) (domain.Subcategory, error) {
	if s.updateSubcategoryFn != nil {
		return s.updateSubcategoryFn(ctx, id, patch)
	}
	return domain.Subcategory{}, nil
}

func (s *stubCatalogService) DeactivateSubcategory(ctx context.Context, id string) (domain.Subcategory, error) {
	if s.deactivateSubFn != nil {
		return s.deactivateSubFn(ctx, id)
	}
	return domain.Subcategory{}, nil
}

func (s *stubCatalogService) CreateItem(ctx context.Context, cmd services.ItemCommand) (services.ItemView, error) {
	if s.createItemFn != nil {
		return s.createItemFn(ctx, cmd)
	}
	return services.ItemView{}, nil
}

func (s *stubCatalogService) ListItems(ctx context.Context, q services.ItemListQuery) (domain.Page[services.ItemView], error) {
	if s.listItemsFn != nil {
		return s.listItemsFn(ctx, q)
	}
	return domain.Page[services.ItemView]{}, nil
}

func (s *stubCatalogService) GetItem(ctx context.Context, id string) (services.ItemView, error) {
	if s.getItemFn != nil {
		return s.getItemFn(ctx, id)
	}
	return services.ItemView{}, nil
}

func (s *stubCatalogService) UpdateItem(ctx context.Context, id string, patch services.ItemPatch) (services.ItemView, error) {
	if s.updateItemFn != nil {
		return s.updateItemFn(ctx, id, patch)
	}
	return services.ItemView{}, nil
}

func (s *stubCatalogService) DeactivateItem(ctx context.Context, id string) (services.ItemView, error) {
	if s.deactivateItemFn != nil {
		return s.deactivateItemFn(ctx, id)
	}
	return services.ItemView{}, nil
}

func (s *stubCatalogService) CreateAddOn(ctx context.Context, cmd services.AddOnCommand) (services.AddOnView, error) {
	if s.createAddOnFn != nil {
		return s.createAddOnFn(ctx, cmd)
	}
	return services.AddOnView{}, nil
}

func (s *stubCatalogService) ListAddOns(ctx context.Context, q services.AddOnListQuery) (domain.Page[services.AddOnView], error) {
	if s.listAddOnsFn != nil {
		return s.listAddOnsFn(ctx, q)
	}
	return domain.Page[services.AddOnView]{}, nil
}

func (s *stubCatalogService) GetAddOn(ctx context.Context, id string) (services.AddOnView, error) {
	if s.getAddOnFn != nil {
		return s.getAddOnFn(ctx, id)
	}
	return services.AddOnView{}, nil
}

func (s *stubCatalogService) UpdateAddOn(ctx context.Context, id string, patch services.AddOnPatch) (services.AddOnView, error) {
	if s.updateAddOnFn != nil {
		return s.updateAddOnFn(ctx, id, patch)
	}
	return services.AddOnView{}, nil
}

func (s *stubCatalogService) DeactivateAddOn(ctx context.Context, id string) (services.AddOnView, error) {
	if s.deactivateAddOnFn != nil {
		return s.deactivateAddOnFn(ctx, id)
	}
	return services.AddOnView{}, nil
}

type stubQuoteService struct {
	quoteFn func(context.Context, string, domain.PriceParams) (services.Quote, error)
}

func (s *stubQuoteService) Quote(ctx context.Context, itemID string, params domain.PriceParams) (services.Quote, error) {
	if s.quoteFn != nil {
		return s.quoteFn(ctx, itemID, params)
	}
	return services.Quote{}, nil
}

func (s *stubQuoteService) QuoteItem(context.Context, domain.Item, domain.PriceParams) (services.Quote, error) {
	return services.Quote{}, nil
}

type stubAvailabilityService struct {
	slotsFn func(context.Context, string, *time.Time) (domain.AvailabilityResult, error)
}

func (s *stubAvailabilityService) AvailableSlots(ctx context.Context, itemID string, date *time.Time) (domain.AvailabilityResult, error) {
	if s.slotsFn != nil {
		return s.slotsFn(ctx, itemID, date)
	}
	return domain.AvailabilityResult{}, nil
}

type stubBookingService struct {
	bookFn   func(context.Context, services.BookCommand) (domain.Booking, error)
	cancelFn func(context.Context, string) (domain.Booking, error)
	getFn    func(context.Context, string) (domain.Booking, error)
	listFn   func(context.Context, services.BookingListQuery) ([]domain.Booking, error)
}

func (s *stubBookingService) Book(ctx context.Context, cmd services.BookCommand) (domain.Booking, error) {
	if s.bookFn != nil {
		return s.bookFn(ctx, cmd)
	}
	return domain.Booking{}, nil
}

func (s *stubBookingService) Cancel(ctx context.Context, id string) (domain.Booking, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, id)
	}
	return domain.Booking{}, nil
}

func (s *stubBookingService) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return domain.Booking{}, nil
}

func (s *stubBookingService) ListItemBookings(ctx context.Context, q services.BookingListQuery) ([]domain.Booking, error) {
	if s.listFn != nil {
		return s.listFn(ctx, q)
	}
	return nil, nil
}

type stubSystemService struct {
	report domain.HealthReport
	err    error
}

func (s *stubSystemService) HealthReport(context.Context) (domain.HealthReport, error) {
	return s.report, s.err
}

var (
	_ services.QuoteService        = (*stubQuoteService)(nil)
	_ services.AvailabilityService = (*stubAvailabilityService)(nil)
	_ services.BookingService      = (*stubBookingService)(nil)
	_ services.SystemService       = (*stubSystemService)(nil)
)

func serve(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
	return body
}

func boolPtr(v bool) *bool          { return &v }
func float64Ptr(v float64) *float64 { return &v }
func stringPtr(v string) *string    { return &v }
