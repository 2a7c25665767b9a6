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

const categoriesCollection = "categories"

type categoryDocument struct {
	RestaurantID  string    `firestore:"restaurantId"`
	Name          string    `firestore:"name"`
	Image         *string   `firestore:"image"`
	Description   *string   `firestore:"description"`
	TaxApplicable *bool     `firestore:"taxApplicable"`
	TaxPercentage *float64  `firestore:"taxPercentage"`
	IsActive      bool      `firestore:"isActive"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

// CategoryRepository stores categories in the "categories" collection.
type CategoryRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.Collection[categoryDocument]
}

var _ repositories.CategoryRepository = (*CategoryRepository)(nil)

func NewCategoryRepository(provider *pfirestore.Provider) (*CategoryRepository, error) {
	if provider == nil {
		return nil, errors.New("category repository requires firestore provider")
	}
	return &CategoryRepository{
		provider: provider,
		base:     pfirestore.NewCollection[categoryDocument](provider, categoriesCollection),
	}, nil
}

func (r *CategoryRepository) Insert(ctx context.Context, category domain.Category) (domain.Category, error) {
	doc := newCategoryDocument(category)
	if err := createUnique(ctx, r.provider, r.base, category.ID, doc, categoryScope(doc), "categories.insert"); err != nil {
		return domain.Category{}, err
	}
	return doc.toDomain(category.ID), nil
}

func (r *CategoryRepository) Update(ctx context.Context, category domain.Category) (domain.Category, error) {
	doc := newCategoryDocument(category)
	if err := replaceUnique(ctx, r.provider, r.base, category.ID, doc, categoryScope(doc), "categories.update"); err != nil {
		return domain.Category{}, err
	}
	return doc.toDomain(category.ID), nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, categoryID string) (domain.Category, error) {
	doc, err := getDocument(ctx, r.base, categoryID)
	if err != nil {
		return domain.Category{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *CategoryRepository) List(ctx context.Context, filter repositories.CategoryListFilter) (domain.Page[domain.Category], error) {
	docs, err := r.base.Find(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("isActive", "==", true)
		if filter.RestaurantID != "" {
			q = q.Where("restaurantId", "==", filter.RestaurantID)
		}
		return q
	})
	if err != nil {
		return domain.Page[domain.Category]{}, err
	}
	rows := make([]domain.Category, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, doc.Data.toDomain(doc.ID))
	}
	return paginate(rows, filter.Options, func(c domain.Category) sortKeys {
		return sortKeys{name: c.Name, createdAt: c.CreatedAt, updatedAt: c.UpdatedAt}
	}), nil
}

func categoryScope(doc categoryDocument) uniqueQuery {
	return func(coll *firestore.CollectionRef) firestore.Query {
		return coll.Where("restaurantId", "==", doc.RestaurantID).Where("name", "==", doc.Name)
	}
}

func newCategoryDocument(c domain.Category) categoryDocument {
	return categoryDocument{
		RestaurantID:  c.RestaurantID,
		Name:          c.Name,
		Image:         c.Image,
		Description:   c.Description,
		TaxApplicable: c.Tax.Applicable,
		TaxPercentage: c.Tax.Percentage,
		IsActive:      c.IsActive,
		CreatedAt:     c.CreatedAt.UTC(),
		UpdatedAt:     c.UpdatedAt.UTC(),
	}
}

func (d categoryDocument) toDomain(id string) domain.Category {
	return domain.Category{
		ID:           id,
		RestaurantID: d.RestaurantID,
		Name:         d.Name,
		Image:        d.Image,
		Description:  d.Description,
		Tax:          domain.TaxRule{Applicable: d.TaxApplicable, Percentage: d.TaxPercentage},
		IsActive:     d.IsActive,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}
