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

const subcategoriesCollection = "subcategories"

type subcategoryDocument struct {
	CategoryID    string    `firestore:"categoryId"`
	Name          string    `firestore:"name"`
	Image         *string   `firestore:"image"`
	Description   *string   `firestore:"description"`
	TaxApplicable *bool     `firestore:"taxApplicable"`
	TaxPercentage *float64  `firestore:"taxPercentage"`
	IsActive      bool      `firestore:"isActive"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

// SubcategoryRepository stores subcategories in the "subcategories" collection.
// A null taxApplicable means the subcategory inherits its category's rule.
type SubcategoryRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.Collection[subcategoryDocument]
}

var _ repositories.SubcategoryRepository = (*SubcategoryRepository)(nil)

func NewSubcategoryRepository(provider *pfirestore.Provider) (*SubcategoryRepository, error) {
	if provider == nil {
		return nil, errors.New("subcategory repository requires firestore provider")
	}
	return &SubcategoryRepository{
		provider: provider,
		base:     pfirestore.NewCollection[subcategoryDocument](provider, subcategoriesCollection),
	}, nil
}

func (r *SubcategoryRepository) Insert(ctx context.Context, subcategory domain.Subcategory) (domain.Subcategory, error) {
	doc := newSubcategoryDocument(subcategory)
	if err := createUnique(ctx, r.provider, r.base, subcategory.ID, doc, subcategoryScope(doc), "subcategories.insert"); err != nil {
		return domain.Subcategory{}, err
	}
	return doc.toDomain(subcategory.ID), nil
}

func (r *SubcategoryRepository) Update(ctx context.Context, subcategory domain.Subcategory) (domain.Subcategory, error) {
	doc := newSubcategoryDocument(subcategory)
	if err := replaceUnique(ctx, r.provider, r.base, subcategory.ID, doc, subcategoryScope(doc), "subcategories.update"); err != nil {
		return domain.Subcategory{}, err
	}
	return doc.toDomain(subcategory.ID), nil
}

func (r *SubcategoryRepository) FindByID(ctx context.Context, subcategoryID string) (domain.Subcategory, error) {
	doc, err := getDocument(ctx, r.base, subcategoryID)
	if err != nil {
		return domain.Subcategory{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *SubcategoryRepository) List(ctx context.Context, filter repositories.SubcategoryListFilter) (domain.Page[domain.Subcategory], error) {
	docs, err := r.base.Find(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("isActive", "==", true)
		if filter.CategoryID != "" {
			q = q.Where("categoryId", "==", filter.CategoryID)
		}
		return q
	})
	if err != nil {
		return domain.Page[domain.Subcategory]{}, err
	}
	rows := make([]domain.Subcategory, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, doc.Data.toDomain(doc.ID))
	}
	return paginate(rows, filter.Options, func(s domain.Subcategory) sortKeys {
		return sortKeys{name: s.Name, createdAt: s.CreatedAt, updatedAt: s.UpdatedAt}
	}), nil
}

func subcategoryScope(doc subcategoryDocument) uniqueQuery {
	return func(coll *firestore.CollectionRef) firestore.Query {
		return coll.Where("categoryId", "==", doc.CategoryID).Where("name", "==", doc.Name)
	}
}

func newSubcategoryDocument(s domain.Subcategory) subcategoryDocument {
	return subcategoryDocument{
		CategoryID:    s.CategoryID,
		Name:          s.Name,
		Image:         s.Image,
		Description:   s.Description,
		TaxApplicable: s.Tax.Applicable,
		TaxPercentage: s.Tax.Percentage,
		IsActive:      s.IsActive,
		CreatedAt:     s.CreatedAt.UTC(),
		UpdatedAt:     s.UpdatedAt.UTC(),
	}
}

func (d subcategoryDocument) toDomain(id string) domain.Subcategory {
	return domain.Subcategory{
		ID:          id,
		CategoryID:  d.CategoryID,
		Name:        d.Name,
		Image:       d.Image,
		Description: d.Description,
		Tax:         domain.TaxRule{Applicable: d.TaxApplicable, Percentage: d.TaxPercentage},
		IsActive:    d.IsActive,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}
