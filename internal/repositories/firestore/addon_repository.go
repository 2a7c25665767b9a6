package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/menuslot/api/internal/domain"
	pfirestore "github.com/menuslot/api/internal/platform/firestore"
	"github.com/menuslot/api/internal/repositories"
)

const addOnsCollection = "addons"

type addOnDocument struct {
	ItemID      string    `firestore:"itemId"`
	Name        string    `firestore:"name"`
	Description *string   `firestore:"description"`
	Price       float64   `firestore:"price"`
	IsMandatory bool      `firestore:"isMandatory"`
	Group       *string   `firestore:"group"`
	IsActive    bool      `firestore:"isActive"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

// AddOnRepository stores add-ons in the "addons" collection.
type AddOnRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.Collection[addOnDocument]
}

var _ repositories.AddOnRepository = (*AddOnRepository)(nil)

func NewAddOnRepository(provider *pfirestore.Provider) (*AddOnRepository, error) {
	if provider == nil {
		return nil, errors.New("addon repository requires firestore provider")
	}
	return &AddOnRepository{
		provider: provider,
		base:     pfirestore.NewCollection[addOnDocument](provider, addOnsCollection),
	}, nil
}

func (r *AddOnRepository) Insert(ctx context.Context, addon domain.AddOn) (domain.AddOn, error) {
	doc := newAddOnDocument(addon)
	if err := createUnique(ctx, r.provider, r.base, addon.ID, doc, addOnScope(doc), "addons.insert"); err != nil {
		return domain.AddOn{}, err
	}
	return doc.toDomain(addon.ID), nil
}

func (r *AddOnRepository) Update(ctx context.Context, addon domain.AddOn) (domain.AddOn, error) {
	doc := newAddOnDocument(addon)
	if err := replaceUnique(ctx, r.provider, r.base, addon.ID, doc, addOnScope(doc), "addons.update"); err != nil {
		return domain.AddOn{}, err
	}
	return doc.toDomain(addon.ID), nil
}

func (r *AddOnRepository) FindByID(ctx context.Context, addonID string) (domain.AddOn, error) {
	doc, err := getDocument(ctx, r.base, addonID)
	if err != nil {
		return domain.AddOn{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *AddOnRepository) List(ctx context.Context, filter repositories.AddOnListFilter) (domain.Page[domain.AddOn], error) {
	docs, err := r.base.Find(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("isActive", "==", true)
		if filter.ItemID != "" {
			q = q.Where("itemId", "==", filter.ItemID)
		}
		if filter.Group != "" {
			q = q.Where("group", "==", filter.Group)
		}
		return q
	})
	if err != nil {
		return domain.Page[domain.AddOn]{}, err
	}
	rows := make([]domain.AddOn, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, doc.Data.toDomain(doc.ID))
	}
	return paginate(rows, filter.Options, func(a domain.AddOn) sortKeys {
		return sortKeys{name: a.Name, createdAt: a.CreatedAt, updatedAt: a.UpdatedAt}
	}), nil
}

func addOnScope(doc addOnDocument) uniqueQuery {
	return func(coll *firestore.CollectionRef) firestore.Query {
		return coll.Where("itemId", "==", doc.ItemID).Where("name", "==", doc.Name)
	}
}

func newAddOnDocument(a domain.AddOn) addOnDocument {
	return addOnDocument{
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

func (d addOnDocument) toDomain(id string) domain.AddOn {
	return domain.AddOn{
		ID:          id,
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
