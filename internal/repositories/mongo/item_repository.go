package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	domain "github.com/menuslot/api/internal/domain"
	pmongo "github.com/menuslot/api/internal/platform/mongo"
	"github.com/menuslot/api/internal/repositories"
)

const (
	itemsCollection  = "items"
	addOnsCollection = "addons"
)

type itemDocument struct {
	ID            string                          `bson:"_id"`
	Name          string                          `bson:"name"`
	Description   *string                         `bson:"description"`
	Image         *string                         `bson:"image"`
	CategoryID    string                          `bson:"categoryId"`
	SubcategoryID string                          `bson:"subcategoryId"`
	Pricing       domain.PricingDocument          `bson:"pricing"`
	AvailableDays []string                        `bson:"availableDays"`
	TimeSlots     []repositories.TimeSlotDocument `bson:"timeSlots"`
	IsActive      bool                            `bson:"isActive"`
	CreatedAt     time.Time                       `bson:"createdAt"`
	UpdatedAt     time.Time                       `bson:"updatedAt"`
}

// ItemRepository stores items; the (categoryId, subcategoryId, name) index enforces
// uniqueness per parent.
type ItemRepository struct {
	coll *mongo.Collection
}

var _ repositories.ItemRepository = (*ItemRepository)(nil)

func NewItemRepository(coll *mongo.Collection) (*ItemRepository, error) {
	if coll == nil {
		return nil, errors.New("item repository requires mongo collection")
	}
	return &ItemRepository{coll: coll}, nil
}

func (r *ItemRepository) Insert(ctx context.Context, item domain.Item) (domain.Item, error) {
	doc := newItemDocument(item)
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return domain.Item{}, pmongo.WrapError("items.insert", err)
	}
	return doc.toDomain()
}

func (r *ItemRepository) Update(ctx context.Context, item domain.Item) (domain.Item, error) {
	doc := newItemDocument(item)
	if err := replaceExisting(ctx, r.coll, "items.update", doc.ID, doc); err != nil {
		return domain.Item{}, err
	}
	return doc.toDomain()
}

func (r *ItemRepository) FindByID(ctx context.Context, itemID string) (domain.Item, error) {
	doc, err := findOne[itemDocument](ctx, r.coll, "items.find", itemID)
	if err != nil {
		return domain.Item{}, err
	}
	return doc.toDomain()
}

func (r *ItemRepository) List(ctx context.Context, filter repositories.ItemListFilter) (domain.Page[domain.Item], error) {
	query := bson.M{}
	if filter.ActiveOnly {
		query["isActive"] = true
	}
	if filter.CategoryID != "" {
		query["categoryId"] = filter.CategoryID
	}
	if filter.SubcategoryID != "" {
		query["subcategoryId"] = filter.SubcategoryID
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
		}
	}
	return listPage(ctx, r.coll, "items.list", query, filter.Options, itemDocument.toDomain)
}

func newItemDocument(item domain.Item) itemDocument {
	days, slots := repositories.EncodeAvailability(item.Availability)
	return itemDocument{
		ID:            item.ID,
		Name:          item.Name,
		Description:   item.Description,
		Image:         item.Image,
		CategoryID:    item.Parent.CategoryID(),
		SubcategoryID: item.Parent.SubcategoryID(),
		Pricing:       domain.EncodePricing(item.Pricing),
		AvailableDays: days,
		TimeSlots:     slots,
		IsActive:      item.IsActive,
		CreatedAt:     item.CreatedAt.UTC(),
		UpdatedAt:     item.UpdatedAt.UTC(),
	}
}

func (d itemDocument) toDomain() (domain.Item, error) {
	parent, err := repositories.DecodeItemParent(d.CategoryID, d.SubcategoryID)
	if err != nil {
		return domain.Item{}, fmt.Errorf("item %s: %w", d.ID, err)
	}
	pricing, err := domain.DecodePricing(d.Pricing)
	if err != nil {
		return domain.Item{}, fmt.Errorf("item %s: %w", d.ID, err)
	}
	availability, err := repositories.DecodeAvailability(d.AvailableDays, d.TimeSlots)
	if err != nil {
		return domain.Item{}, fmt.Errorf("item %s: %w", d.ID, err)
	}
	return domain.Item{
		ID:           d.ID,
		Name:         d.Name,
		Description:  d.Description,
		Image:        d.Image,
		IsActive:     d.IsActive,
		Parent:       parent,
		Pricing:      pricing,
		Availability: availability,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}, nil
}

type addOnDocument struct {
	ID          string    `bson:"_id"`
	ItemID      string    `bson:"itemId"`
	Name        string    `bson:"name"`
	Description *string   `bson:"description"`
	Price       float64   `bson:"price"`
	IsMandatory bool      `bson:"isMandatory"`
	Group       *string   `bson:"group"`
	IsActive    bool      `bson:"isActive"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

// AddOnRepository stores add-ons; the (itemId, name) index enforces uniqueness.
type AddOnRepository struct {
	coll *mongo.Collection
}

var _ repositories.AddOnRepository = (*AddOnRepository)(nil)

func NewAddOnRepository(coll *mongo.Collection) (*AddOnRepository, error) {
	if coll == nil {
		return nil, errors.New("addon repository requires mongo collection")
	}
	return &AddOnRepository{coll: coll}, nil
}

func (r *AddOnRepository) Insert(ctx context.Context, addon domain.AddOn) (domain.AddOn, error) {
	doc := newAddOnDocument(addon)
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return domain.AddOn{}, pmongo.WrapError("addons.insert", err)
	}
	return doc.toDomain(), nil
}

func (r *AddOnRepository) Update(ctx context.Context, addon domain.AddOn) (domain.AddOn, error) {
	doc := newAddOnDocument(addon)
	if err := replaceExisting(ctx, r.coll, "addons.update", doc.ID, doc); err != nil {
		return domain.AddOn{}, err
	}
	return doc.toDomain(), nil
}

func (r *AddOnRepository) FindByID(ctx context.Context, addonID string) (domain.AddOn, error) {
	doc, err := findOne[addOnDocument](ctx, r.coll, "addons.find", addonID)
	if err != nil {
		return domain.AddOn{}, err
	}
	return doc.toDomain(), nil
}

func (r *AddOnRepository) List(ctx context.Context, filter repositories.AddOnListFilter) (domain.Page[domain.AddOn], error) {
	query := bson.M{"isActive": true}
	if filter.ItemID != "" {
		query["itemId"] = filter.ItemID
	}
	if filter.Group != "" {
		query["group"] = filter.Group
	}
	return listPage(ctx, r.coll, "addons.list", query, filter.Options, func(doc addOnDocument) (domain.AddOn, error) {
		return doc.toDomain(), nil
	})
}

func newAddOnDocument(a domain.AddOn) addOnDocument {
	return addOnDocument{
		ID:          a.ID,
		ItemID:      a.ItemID,
		Name:        a.Name,
		Description: a.Description,
		Price:       a.Price,
		IsMandatory: a.IsMandatory,
		Group:       a.Group,
		IsActive:    a.IsActive,
		CreatedAt:   a.CreatedAt.UTC(),
		UpdatedAt:   a.UpdatedAt.UTC(),
	}
}

func (d addOnDocument) toDomain() domain.AddOn {
	return domain.AddOn{
		ID:          d.ID,
		ItemID:      d.ItemID,
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		IsMandatory: d.IsMandatory,
		Group:       d.Group,
		IsActive:    d.IsActive,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}
