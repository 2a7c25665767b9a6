package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	pmongo "github.com/menuslot/api/internal/platform/mongo"
	"github.com/menuslot/api/internal/repositories"
)

// Registry bundles the Mongo backed repositories around one provider.
type Registry struct {
	provider      *pmongo.Provider
	categories    *CategoryRepository
	subcategories *SubcategoryRepository
	items         *ItemRepository
	addOns        *AddOnRepository
	bookings      *BookingRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry connects, ensures indexes, and builds every repository. The registry owns
// the provider and closes it on Close.
func NewRegistry(ctx context.Context, provider *pmongo.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("mongo registry: provider is required")
	}
	db, err := provider.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("mongo registry: %w", err)
	}
	if err := EnsureIndexes(ctx, db); err != nil {
		return nil, err
	}

	reg := &Registry{provider: provider}
	if reg.categories, err = NewCategoryRepository(db.Collection(categoriesCollection)); err != nil {
		return nil, err
	}
	if reg.subcategories, err = NewSubcategoryRepository(db.Collection(subcategoriesCollection)); err != nil {
		return nil, err
	}
	if reg.items, err = NewItemRepository(db.Collection(itemsCollection)); err != nil {
		return nil, err
	}
	if reg.addOns, err = NewAddOnRepository(db.Collection(addOnsCollection)); err != nil {
		return nil, err
	}
	if reg.bookings, err = NewBookingRepository(provider, db.Collection(bookingsCollection), db.Collection(bookingLocksCollection)); err != nil {
		return nil, err
	}
	return reg, nil
}

// EnsureIndexes creates the uniqueness and lookup indexes. Existing indexes are left alone.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		categoriesCollection: {
			{
				Keys:    bson.D{{Key: "restaurantId", Value: 1}, {Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("unique_restaurant_name"),
			},
		},
		subcategoriesCollection: {
			{
				Keys:    bson.D{{Key: "categoryId", Value: 1}, {Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("unique_category_name"),
			},
		},
		itemsCollection: {
			{
				Keys:    bson.D{{Key: "categoryId", Value: 1}, {Key: "subcategoryId", Value: 1}, {Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("unique_parent_name"),
			},
		},
		addOnsCollection: {
			{
				Keys:    bson.D{{Key: "itemId", Value: 1}, {Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("unique_item_name"),
			},
		},
		bookingsCollection: {
			{
				Keys:    bson.D{{Key: "itemId", Value: 1}, {Key: "status", Value: 1}, {Key: "startTime", Value: 1}},
				Options: options.Index().SetName("item_status_start"),
			},
		},
	}
	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return pmongo.WrapError(fmt.Sprintf("%s.indexes", name), err)
		}
	}
	return nil
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
