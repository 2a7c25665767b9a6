package services

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/menuslot/api/internal/domain"
	"github.com/menuslot/api/internal/repositories"
)

// TaxResolverDeps bundles the lookups needed to walk an item's tax chain.
type TaxResolverDeps struct {
	Categories    repositories.CategoryRepository
	Subcategories repositories.SubcategoryRepository
}

type taxResolver struct {
	categories    repositories.CategoryRepository
	subcategories repositories.SubcategoryRepository
}

var _ TaxResolver = (*taxResolver)(nil)

// NewTaxResolver constructs a TaxResolver backed by category and subcategory repositories.
func NewTaxResolver(deps TaxResolverDeps) (TaxResolver, error) {
	if deps.Categories == nil {
		return nil, errors.New("tax resolver: category repository is required")
	}
	if deps.Subcategories == nil {
		return nil, errors.New("tax resolver: subcategory repository is required")
	}
	return &taxResolver{categories: deps.Categories, subcategories: deps.Subcategories}, nil
}

func (r *taxResolver) Resolve(ctx context.Context, item domain.Item) (domain.TaxInfo, error) {
	switch item.Parent.Kind {
	case domain.ParentSubcategory:
		sub, err := r.subcategories.FindByID(ctx, item.Parent.ID)
		if err != nil {
			return domain.TaxInfo{}, translateRepoError(err, "subcategory")
		}
		if sub.Tax.IsSet() {
			return SubcategoryTax(sub, domain.Category{}), nil
		}
		cat, err := r.categories.FindByID(ctx, sub.CategoryID)
		if err != nil {
			if isRepoNotFound(err) {
				return domain.TaxInfo{}, fmt.Errorf("%w: category not found for subcategory", ErrNotFound)
			}
			return domain.TaxInfo{}, translateRepoError(err, "category")
		}
		return SubcategoryTax(sub, cat), nil
	case domain.ParentCategory:
		cat, err := r.categories.FindByID(ctx, item.Parent.ID)
		if err != nil {
			if isRepoNotFound(err) {
				return domain.TaxInfo{}, fmt.Errorf("%w: category not found for item", ErrNotFound)
			}
			return domain.TaxInfo{}, translateRepoError(err, "category")
		}
		return CategoryTax(cat), nil
	default:
		return domain.TaxInfo{}, nil
	}
}

func (r *taxResolver) Breakdown(ctx context.Context, item domain.Item, basePrice float64) (TaxBreakdown, error) {
	info, err := r.Resolve(ctx, item)
	if err != nil {
		return TaxBreakdown{}, err
	}
	amount := EffectiveTaxAmount(basePrice, info)
	return TaxBreakdown{
		TaxApplicable: info.Applicable,
		TaxPercentage: info.Percentage,
		TaxAmount:     amount,
		FinalPrice:    basePrice + amount,
	}, nil
}

// CategoryTax reads a category's rule with unset values defaulting to false and 0.
func CategoryTax(cat domain.Category) domain.TaxInfo {
	info := domain.TaxInfo{}
	if cat.Tax.Applicable != nil {
		info.Applicable = *cat.Tax.Applicable
	}
	if cat.Tax.Percentage != nil {
		info.Percentage = *cat.Tax.Percentage
	}
	return info
}

// SubcategoryTax applies the inheritance rule: an explicit subcategory setting wins,
// otherwise the parent category's values are used.
func SubcategoryTax(sub domain.Subcategory, parent domain.Category) domain.TaxInfo {
	if !sub.Tax.IsSet() {
		return CategoryTax(parent)
	}
	info := domain.TaxInfo{Applicable: *sub.Tax.Applicable}
	if sub.Tax.Percentage != nil {
		info.Percentage = *sub.Tax.Percentage
	}
	return info
}

// CalculateTaxAmount returns price*percentage/100, or 0 for a non-positive percentage.
func CalculateTaxAmount(price, percentage float64) float64 {
	if percentage <= 0 {
		return 0
	}
	return price * percentage / 100
}

// PriceWithTax returns the price plus its tax amount.
func PriceWithTax(price, percentage float64) float64 {
	return price + CalculateTaxAmount(price, percentage)
}

// EffectiveTaxAmount is the tax charged for the resolved rule; non-applicable tax is 0.
func EffectiveTaxAmount(price float64, info domain.TaxInfo) float64 {
	if !info.Applicable {
		return 0
	}
	return CalculateTaxAmount(price, info.Percentage)
}
