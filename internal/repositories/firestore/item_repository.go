package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/menuslot/api/internal/domain"
	pfirestore "github.com/menuslot/api/internal/platform/firestore"
	"github.com/menuslot/api/internal/platform/textutil"
	"github.com/menuslot/api/internal/repositories"
)

const itemsCollection = "items"

type itemDocument struct {
	Name          string                          `firestore:"name"`
	Description   *string                         `firestore:"description"`
	Image         *string                         `firestore:"image"`
	CategoryID    string                          `firestore:"categoryId"`
	SubcategoryID string                          `firestore:"subcategoryId"`
	Pricing       domain.PricingDocument          `firestore:"pricing"`
	AvailableDays []string                        `firestore:"availableDays"`
	TimeSlots     []repositories.TimeSlotDocument `firestore:"timeSlots"`
	IsActive      bool                            `firestore:"isActive"`
	CreatedAt     time.Time                       `firestore:"createdAt"`
	UpdatedAt     time.Time                       `firestore:"updatedAt"`
}

// ItemRepository stores items in the "items" collection. The parent is kept as two
// fields with exactly one of them set so both can be filtered by equality.
type ItemRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.Collection[itemDocument]
}

var _ repositories.ItemRepository = (*ItemRepository)(nil)

func NewItemRepository(provider *pfirestore.Provider) (*ItemRepository, error) {
	if provider == nil {
		return nil, errors.New("item repository requires firestore provider")
	}
	return &ItemRepository{
		provider: provider,
		base:     pfirestore.NewCollection[itemDocument](provider, itemsCollection),
	}, nil
}

func (r *ItemRepository) Insert(ctx context.Context, item domain.Item) (domain.Item, error) {
	doc := newItemDocument(item)
	if err := createUnique(ctx, r.provider, r.base, item.ID, doc, itemScope(doc), "items.insert"); err != nil {
		return domain.Item{}, err
	}
	return doc.toDomain(item.ID)
}

func (r *ItemRepository) Update(ctx context.Context, item domain.Item) (domain.Item, error) {
	doc := newItemDocument(item)
	if err := replaceUnique(ctx, r.provider, r.base, item.ID, doc, itemScope(doc), "items.update"); err != nil {
		return domain.Item{}, err
	}
	return doc.toDomain(item.ID)
}

func (r *ItemRepository) FindByID(ctx context.Context, itemID string) (domain.Item, error) {
	doc, err := getDocument(ctx, r.base, itemID)
	if err != nil {
		return domain.Item{}, err
	}
	return doc.Data.toDomain(doc.ID)
}

func (r *ItemRepository) List(ctx context.Context, filter repositories.ItemListFilter) (domain.Page[domain.Item], error) {
	docs, err := r.base.Find(ctx, func(q firestore.Query) firestore.Query {
		if filter.ActiveOnly {
			q = q.Where("isActive", "==", true)
		}
		if filter.CategoryID != "" {
			q = q.Where("categoryId", "==", filter.CategoryID)
		}
		if filter.SubcategoryID != "" {
			q = q.Where("subcategoryId", "==", filter.SubcategoryID)
		}
		return q
	})
	if err != nil {
		return domain.Page[domain.Item]{}, err
	}

	search := strings.TrimSpace(filter.Search)
	rows := make([]domain.Item, 0, len(docs))
	for _, doc := range docs {
		if search != "" {
			description := ""
			if doc.Data.Description != nil {
				description = *doc.Data.Description
			}
			if !textutil.ContainsFold(search, doc.Data.Name, description) {
				continue
			}
		}
		item, err := doc.Data.toDomain(doc.ID)
		if err != nil {
			return domain.Page[domain.Item]{}, err
		}
		rows = append(rows, item)
	}
	return paginate(rows, filter.Options, func(i domain.Item) sortKeys {
		return sortKeys{name: i.Name, createdAt: i.CreatedAt, updatedAt: i.UpdatedAt}
	}), nil
}

func itemScope(doc itemDocument) uniqueQuery {
	return func(coll *firestore.CollectionRef) firestore.Query {
		return coll.Where("categoryId", "==", doc.CategoryID).
			Where("subcategoryId", "==", doc.SubcategoryID).
			Where("name", "==", doc.Name)
	}
}

func newItemDocument(item domain.Item) itemDocument {
	days, slots := repositories.EncodeAvailability(item.Availability)
	return itemDocument{
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

func (d itemDocument) toDomain(id string) (domain.Item, error) {
	parent, err := repositories.DecodeItemParent(d.CategoryID, d.SubcategoryID)
	if err != nil {
		return domain.Item{}, fmt.Errorf("item %s: %w", id, err)
	}
	pricing, err := domain.DecodePricing(d.Pricing)
	if err != nil {
		return domain.Item{}, fmt.Errorf("item %s: %w", id, err)
	}
	availability, err := repositories.DecodeAvailability(d.AvailableDays, d.TimeSlots)
	if err != nil {
		return domain.Item{}, fmt.Errorf("item %s: %w", id, err)
	}
	return domain.Item{
		ID:           id,
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
