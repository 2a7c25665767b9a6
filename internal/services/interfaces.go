package services

import (
	"context"
	"time"

	domain "github.com/menuslot/api/internal/domain"
)

// PricingEngine computes a base price from a pricing configuration.
type PricingEngine interface {
	ComputeBasePrice(cfg domain.PricingConfig, params domain.PriceParams) (domain.PriceResult, error)
}

// TaxResolver walks the item → subcategory → category chain to find the effective tax.
type TaxResolver interface {
	Resolve(ctx context.Context, item domain.Item) (domain.TaxInfo, error)
	Breakdown(ctx context.Context, item domain.Item, basePrice float64) (TaxBreakdown, error)
}

// QuoteService combines pricing and tax into a grand total.
type QuoteService interface {
	Quote(ctx context.Context, itemID string, params domain.PriceParams) (Quote, error)
	QuoteItem(ctx context.Context, item domain.Item, params domain.PriceParams) (Quote, error)
}

// AvailabilityService computes open slots for bookable items.
type AvailabilityService interface {
	AvailableSlots(ctx context.Context, itemID string, date *time.Time) (domain.AvailabilityResult, error)
}

// BookingService validates, persists and cancels bookings.
type BookingService interface {
	Book(ctx context.Context, cmd BookCommand) (domain.Booking, error)
	Cancel(ctx context.Context, bookingID string) (domain.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (domain.Booking, error)
	ListItemBookings(ctx context.Context, filter BookingListQuery) ([]domain.Booking, error)
}

// BookingEventPublisher forwards booking lifecycle events to downstream consumers.
type BookingEventPublisher interface {
	PublishBookingEvent(ctx context.Context, event BookingEvent) error
}

// CatalogService is the CRUD surface over categories, subcategories, items and add-ons.
type CatalogService interface {
	CreateCategory(ctx context.Context, cmd CategoryCommand) (domain.Category, error)
	ListCategories(ctx context.Context, filter CategoryListQuery) (domain.Page[domain.Category], error)
	GetCategory(ctx context.Context, categoryID string) (domain.Category, error)
	UpdateCategory(ctx context.Context, categoryID string, patch CategoryPatch) (domain.Category, error)
	DeactivateCategory(ctx context.Context, categoryID string) (domain.Category, error)

	CreateSubcategory(ctx context.Context, cmd SubcategoryCommand) (domain.Subcategory, error)
	ListSubcategories(ctx context.Context, filter SubcategoryListQuery) (domain.Page[domain.Subcategory], error)
	GetSubcategory(ctx context.Context, subcategoryID string) (domain.Subcategory, error)
	UpdateSubcategory(ctx context.Context, subcategoryID string, patch SubcategoryPatch) (domain.Subcategory, error)
	DeactivateSubcategory(ctx context.Context, subcategoryID string) (domain.Subcategory, error)

	CreateItem(ctx context.Context, cmd ItemCommand) (ItemView, error)
	ListItems(ctx context.Context, filter ItemListQuery) (domain.Page[ItemView], error)
	GetItem(ctx context.Context, itemID string) (ItemView, error)
	UpdateItem(ctx context.Context, itemID string, patch ItemPatch) (ItemView, error)
	DeactivateItem(ctx context.Context, itemID string) (ItemView, error)

	CreateAddOn(ctx context.Context, cmd AddOnCommand) (AddOnView, error)
	ListAddOns(ctx context.Context, filter AddOnListQuery) (domain.Page[AddOnView], error)
	GetAddOn(ctx context.Context, addonID string) (AddOnView, error)
	UpdateAddOn(ctx context.Context, addonID string, patch AddOnPatch) (AddOnView, error)
	DeactivateAddOn(ctx context.Context, addonID string) (AddOnView, error)
}

// SystemService aggregates health reporting.
type SystemService interface {
	HealthReport(ctx context.Context) (domain.HealthReport, error)
}

// Command and DTO definitions ------------------------------------------------

// TaxBreakdown is the tax applied on top of a base price.
type TaxBreakdown struct {
	TaxApplicable bool
	TaxPercentage float64
	TaxAmount     float64
	FinalPrice    float64
}

// Quote is the full price breakdown for an item.
type Quote struct {
	ItemID        string
	ItemName      string
	PricingType   domain.PricingType
	BasePrice     *float64
	AppliedRule   *domain.AppliedRule
	Available     bool
	Message       string
	TaxApplicable bool
	TaxPercentage float64
	TaxAmount     float64
	GrandTotal    *float64
	FinalPrice    *float64
}

type BookCommand struct {
	ItemID        string
	StartTime     time.Time
	EndTime       time.Time
	CustomerName  *string
	CustomerEmail *string
	CustomerPhone *string
}

type BookingListQuery struct {
	ItemID    string
	Status    *domain.BookingStatus
	StartDate *time.Time
	EndDate   *time.Time
}

// BookingEvent describes a booking state change.
type BookingEvent struct {
	Type       string
	BookingID  string
	ItemID     string
	StartTime  time.Time
	EndTime    time.Time
	Status     domain.BookingStatus
	OccurredAt time.Time
}

const (
	BookingEventConfirmed = "booking.confirmed"
	BookingEventCancelled = "booking.cancelled"
)

type CategoryCommand struct {
	RestaurantID string
	Name         string
	Image        *string
	Description  *string
	Tax          domain.TaxRule
}

// CategoryPatch carries optional updates. An empty Image or Description clears the field;
// the set fields of Tax are merged into the current rule.
type CategoryPatch struct {
	Name        *string
	Image       *string
	Description *string
	Tax         *domain.TaxRule
}

type CategoryListQuery struct {
	RestaurantID string
	Options      domain.ListOptions
}

type SubcategoryCommand struct {
	CategoryID  string
	Name        string
	Image       *string
	Description *string
	Tax         domain.TaxRule
}

// SubcategoryPatch carries optional updates. TaxSet with an unset Tax resets the
// subcategory to inherit from its category.
type SubcategoryPatch struct {
	Name        *string
	Image       *string
	Description *string
	TaxSet      bool
	Tax         domain.TaxRule
}

type SubcategoryListQuery struct {
	CategoryID string
	Options    domain.ListOptions
}

type ItemCommand struct {
	Name          string
	Description   *string
	Image         *string
	CategoryID    string
	SubcategoryID string
	Pricing       domain.PricingDocument
	AvailableDays []string
	TimeSlots     []TimeSlotInput
}

type TimeSlotInput struct {
	Start string
	End   string
}

// ItemPatch carries optional updates. A non-nil parent pair replaces the parent.
type ItemPatch struct {
	Name          *string
	Description   *string
	Image         *string
	CategoryID    *string
	SubcategoryID *string
	Pricing       *domain.PricingDocument
	AvailableDays *[]string
	TimeSlots     *[]TimeSlotInput
}

type ItemListQuery struct {
	CategoryID    string
	SubcategoryID string
	ActiveOnly    bool
	Search        string
	MinPrice      *float64
	MaxPrice      *float64
	TaxApplicable *bool
	Options       domain.ListOptions
}

// ItemView is an item with its parent resolved.
type ItemView struct {
	Item            domain.Item
	Category        *domain.Category
	Subcategory     *domain.Subcategory
	CalculatedPrice *float64
}

type AddOnCommand struct {
	ItemID      string
	Name        string
	Description *string
	Price       float64
	IsMandatory bool
	Group       *string
}

type AddOnPatch struct {
	Name        *string
	Description *string
	Price       *float64
	IsMandatory *bool
	Group       *string
}

type AddOnListQuery struct {
	ItemID  string
	Group   string
	Options domain.ListOptions
}

// AddOnView is an add-on with its item reference resolved.
type AddOnView struct {
	AddOn domain.AddOn
	Item  *domain.ItemRef
}
