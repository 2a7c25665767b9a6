package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	domain "github.com/menuslot/api/internal/domain"
	pmongo "github.com/menuslot/api/internal/platform/mongo"
	"github.com/menuslot/api/internal/repositories"
)

const (
	categoriesCollection    = "categories"
	subcategoriesCollection = "subcategories"
)

type categoryDocument struct {
	ID            string    `bson:"_id"`
	RestaurantID  string    `bson:"restaurantId"`
	Name          string    `bson:"name"`
	Image         *string   `bson:"image"`
	Description   *string   `bson:"description"`
	TaxApplicable *bool     `bson:"taxApplicable"`
	TaxPercentage *float64  `bson:"taxPercentage"`
	IsActive      bool      `bson:"isActive"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

// CategoryRepository stores categories; the (restaurantId, name) index enforces uniqueness.
type CategoryRepository struct {
	coll *mongo.Collection
}

var _ repositories.CategoryRepository = (*CategoryRepository)(nil)

func NewCategoryRepository(coll *mongo.Collection) (*CategoryRepository, error) {
	if coll == nil {
		return nil, errors.New("category repository requires mongo collection")
	}
	return &CategoryRepository{coll: coll}, nil
}

func (r *CategoryRepository) Insert(ctx context.Context, category domain.Category) (domain.Category, error) {
	doc := newCategoryDocument(category)
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return domain.Category{}, pmongo.WrapError("categories.insert", err)
	}
	return doc.toDomain(), nil
}

func (r *CategoryRepository) Update(ctx context.Context, category domain.Category) (domain.Category, error) {
	doc := newCategoryDocument(category)
	if err := replaceExisting(ctx, r.coll, "categories.update", doc.ID, doc); err != nil {
		return domain.Category{}, err
	}
	return doc.toDomain(), nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, categoryID string) (domain.Category, error) {
	doc, err := findOne[categoryDocument](ctx, r.coll, "categories.find", categoryID)
	if err != nil {
		return domain.Category{}, err
	}
	return doc.toDomain(), nil
}

func (r *CategoryRepository) List(ctx context.Context, filter repositories.CategoryListFilter) (domain.Page[domain.Category], error) {
	query := bson.M{"isActive": true}
	if filter.RestaurantID != "" {
		query["restaurantId"] = filter.RestaurantID
	}
	return listPage(ctx, r.coll, "categories.list", query, filter.Options, func(doc categoryDocument) (domain.Category, error) {
		return doc.toDomain(), nil
	})
}

func newCategoryDocument(c domain.Category) categoryDocument {
	return categoryDocument{
		ID:            c.ID,
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

func (d categoryDocument) toDomain() domain.Category {
	return domain.Category{
		ID:           d.ID,
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

type subcategoryDocument struct {
	ID            string    `bson:"_id"`
	CategoryID    string    `bson:"categoryId"`
	Name          string    `bson:"name"`
	Image         *string   `bson:"image"`
	Description   *string   `bson:"description"`
	TaxApplicable *bool     `bson:"taxApplicable"`
	TaxPercentage *float64  `bson:"taxPercentage"`
	IsActive      bool      `bson:"isActive"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

// SubcategoryRepository stores subcategories; the (categoryId, name) index enforces uniqueness.
type SubcategoryRepository struct {
	coll *mongo.Collection
}

var _ repositories.SubcategoryRepository = (*SubcategoryRepository)(nil)

func NewSubcategoryRepository(coll *mongo.Collection) (*SubcategoryRepository, error) {
	if coll == nil {
		return nil, errors.New("subcategory repository requires mongo collection")
	}
	return &SubcategoryRepository{coll: coll}, nil
}

func (r *SubcategoryRepository) Insert(ctx context.Context, subcategory domain.Subcategory) (domain.Subcategory, error) {
	doc := newSubcategoryDocument(subcategory)
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return domain.Subcategory{}, pmongo.WrapError("subcategories.insert", err)
	}
	return doc.toDomain(), nil
}

func (r *SubcategoryRepository) Update(ctx context.Context, subcategory domain.Subcategory) (domain.Subcategory, error) {
	doc := newSubcategoryDocument(subcategory)
	if err := replaceExisting(ctx, r.coll, "subcategories.update", doc.ID, doc); err != nil {
		return domain.Subcategory{}, err
	}
	return doc.toDomain(), nil
}

func (r *SubcategoryRepository) FindByID(ctx context.Context, subcategoryID string) (domain.Subcategory, error) {
	doc, err := findOne[subcategoryDocument](ctx, r.coll, "subcategories.find", subcategoryID)
	if err != nil {
		return domain.Subcategory{}, err
	}
	return doc.toDomain(), nil
}

func (r *SubcategoryRepository) List(ctx context.Context, filter repositories.SubcategoryListFilter) (domain.Page[domain.Subcategory], error) {
	query := bson.M{"isActive": true}
	if filter.CategoryID != "" {
		query["categoryId"] = filter.CategoryID
	}
	return listPage(ctx, r.coll, "subcategories.list", query, filter.Options, func(doc subcategoryDocument) (domain.Subcategory, error) {
		return doc.toDomain(), nil
	})
}

func newSubcategoryDocument(s domain.Subcategory) subcategoryDocument {
	return subcategoryDocument{
		ID:            s.ID,
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

func (d subcategoryDocument) toDomain() domain.Subcategory {
	return domain.Subcategory{
		ID:          d.ID,
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
