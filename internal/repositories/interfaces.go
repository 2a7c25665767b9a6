package repositories

import (
	"context"
	"time"

	domain "github.com/menuslot/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error
	Ping(ctx context.Context) error

	Categories() CategoryRepository
	Subcategories() SubcategoryRepository
	Items() ItemRepository
	AddOns() AddOnRepository
	Bookings() BookingRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CategoryRepository persists categories. Names are unique per restaurant.
type CategoryRepository interface {
	Insert(ctx context.Context, category domain.Category) (domain.Category, error)
	Update(ctx context.Context, category domain.Category) (domain.Category, error)
	FindByID(ctx context.Context, categoryID string) (domain.Category, error)
	List(ctx context.Context, filter CategoryListFilter) (domain.Page[domain.Category], error)
}

// SubcategoryRepository persists subcategories. Names are unique per category.
type SubcategoryRepository interface {
	Insert(ctx context.Context, subcategory domain.Subcategory) (domain.Subcategory, error)
	Update(ctx context.Context, subcategory domain.Subcategory) (domain.Subcategory, error)
	FindByID(ctx context.Context, subcategoryID string) (domain.Subcategory, error)
	List(ctx context.Context, filter SubcategoryListFilter) (domain.Page[domain.Subcategory], error)
}

// ItemRepository persists items. Names are unique per parent.
type ItemRepository interface {
	Insert(ctx context.Context, item domain.Item) (domain.Item, error)
	Update(ctx context.Context, item domain.Item) (domain.Item, error)
	FindByID(ctx context.Context, itemID string) (domain.Item, error)
	List(ctx context.Context, filter ItemListFilter) (domain.Page[domain.Item], error)
}

// AddOnRepository persists add-ons. Names are unique per item.
type AddOnRepository interface {
	Insert(ctx context.Context, addon domain.AddOn) (domain.AddOn, error)
	Update(ctx context.Context, addon domain.AddOn) (domain.AddOn, error)
	FindByID(ctx context.Context, addonID string) (domain.AddOn, error)
	List(ctx context.Context, filter AddOnListFilter) (domain.Page[domain.AddOn], error)
}

// BookingRepository persists bookings and owns the storage-level overlap guarantee.
type BookingRepository interface {
	// CreateConfirmed stores a confirmed booking unless another confirmed booking for the
	// same item overlaps it. The check and the write are atomic; an overlap yields a
	// *BookingError with BookingErrorOverlap.
	CreateConfirmed(ctx context.Context, booking domain.Booking) (domain.Booking, error)
	FindByID(ctx context.Context, bookingID string) (domain.Booking, error)
	// ListConfirmedOverlapping returns confirmed bookings of the item intersecting [start, end).
	ListConfirmedOverlapping(ctx context.Context, itemID string, start, end time.Time) ([]domain.Booking, error)
	ListByItem(ctx context.Context, filter BookingListFilter) ([]domain.Booking, error)
	// Cancel flips a confirmed booking to cancelled.
	Cancel(ctx context.Context, bookingID string, at time.Time) (domain.Booking, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.HealthReport, error)
}

// Filter DTOs shared across repositories ------------------------------------

// CategoryListFilter narrows category listings. Only active rows are returned.
type CategoryListFilter struct {
	RestaurantID string
	Options      domain.ListOptions
}

// SubcategoryListFilter narrows subcategory listings. Only active rows are returned.
type SubcategoryListFilter struct {
	CategoryID string
	Options    domain.ListOptions
}

// ItemListFilter narrows item listings.
type ItemListFilter struct {
	CategoryID    string
	SubcategoryID string
	ActiveOnly    bool
	// Search matches name or description, ignoring case.
	Search  string
	Options domain.ListOptions
}

// AddOnListFilter narrows add-on listings. Only active rows are returned.
type AddOnListFilter struct {
	ItemID  string
	Group   string
	Options domain.ListOptions
}

// BookingListFilter narrows the bookings of one item. StartFrom and StartTo bound
// the booking start inclusively.
type BookingListFilter struct {
	ItemID    string
	Status    *domain.BookingStatus
	StartFrom *time.Time
	StartTo   *time.Time
}
