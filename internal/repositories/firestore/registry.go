package firestore

import (
	"context"
	"errors"
	"fmt"

	pfirestore "github.com/menuslot/api/internal/platform/firestore"
	"github.com/menuslot/api/internal/repositories"
)

// Registry bundles the Firestore backed repositories around one provider.
type Registry struct {
	provider      *pfirestore.Provider
	categories    *CategoryRepository
	subcategories *SubcategoryRepository
	items         *ItemRepository
	addOns        *AddOnRepository
	bookings      *BookingRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry builds every repository against provider. The registry owns the provider
// and closes it on Close.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry: provider is required")
	}
	categories, err := NewCategoryRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("firestore registry: %w", err)
	}
	subcategories, err := NewSubcategoryRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("firestore registry: %w", err)
	}
	items, err := NewItemRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("firestore registry: %w", err)
	}
	addOns, err := NewAddOnRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("firestore registry: %w", err)
	}
	bookings, err := NewBookingRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("firestore registry: %w", err)
	}
	return &Registry{
		provider:      provider,
		categories:    categories,
		subcategories: subcategories,
		items:         items,
		addOns:        addOns,
		bookings:      bookings,
	}, nil
}

func (r *Registry) Close(ctx context.Context) error {
	return r.provider.Close(ctx)
}

func (r *Registry) Ping(ctx context.Context) error {
	return r.provider.Ping(ctx)
}

func (r *Registry) Categories() repositories.CategoryRepository       { return r.categories }
func (r *Registry) Subcategories() repositories.SubcategoryRepository { return r.subcategories }
func (r *Registry) Items() repositories.ItemRepository                { return r.items }
func (r *Registry) AddOns() repositories.AddOnRepository              { return r.addOns }
func (r *Registry) Bookings() repositories.BookingRepository          { return r.bookings }
