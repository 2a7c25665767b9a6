package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/menuslot/api/internal/domain"
	"github.com/menuslot/api/internal/repositories"
)

const serviceTracerName = "github.com/menuslot/api/internal/services"

// QuoteServiceDeps bundles collaborators required by the quote assembler.
type QuoteServiceDeps struct {
	Items  repositories.ItemRepository
	Engine PricingEngine
	Tax    TaxResolver
	Tracer trace.Tracer
}

type quoteService struct {
	items  repositories.ItemRepository
	engine PricingEngine
	tax    TaxResolver
	tracer trace.Tracer
}

var _ QuoteService = (*quoteService)(nil)

// NewQuoteService constructs the price quote assembler.
func NewQuoteService(deps QuoteServiceDeps) (QuoteService, error) {
	if deps.Items == nil {
		return nil, errors.New("quote service: item repository is required")
	}
	if deps.Engine == nil {
		return nil, errors.New("quote service: pricing engine is required")
	}
	if deps.Tax == nil {
		return nil, errors.New("quote service: tax resolver is required")
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(serviceTracerName)
	}
	return &quoteService{items: deps.Items, engine: deps.Engine, tax: deps.Tax, tracer: tracer}, nil
}

func (s *quoteService) Quote(ctx context.Context, itemID string, params domain.PriceParams) (Quote, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return Quote{}, fmt.Errorf("%w: item id is required", ErrInvalidInput)
	}
	item, err := loadActiveItem(ctx, s.items, itemID)
	if err != nil {
		return Quote{}, err
	}
	return s.QuoteItem(ctx, item, params)
}

func (s *quoteService) QuoteItem(ctx context.Context, item domain.Item, params domain.PriceParams) (Quote, error) {
	ctx, span := s.tracer.Start(ctx, "pricing.quote", trace.WithAttributes(attribute.String("item.id", item.ID)))
	defer span.End()

	result, err := s.engine.ComputeBasePrice(item.Pricing, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pricing failed")
		return Quote{}, err
	}
	span.SetAttributes(attribute.String("pricing.type", string(result.PricingType)))

	quote := Quote{
		ItemID:      item.ID,
		ItemName:    item.Name,
		PricingType: result.PricingType,
		BasePrice:   result.BasePrice,
		Available:   result.Available,
		Message:     result.Message,
	}
	if !result.Available {
		return quote, nil
	}

	rule := result.AppliedRule
	quote.AppliedRule = &rule

	base := 0.0
	if result.BasePrice != nil {
		base = *result.BasePrice
	}
	breakdown, err := s.tax.Breakdown(ctx, item, base)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tax resolution failed")
		return Quote{}, err
	}
	quote.TaxApplicable = breakdown.TaxApplicable
	quote.TaxPercentage = breakdown.TaxPercentage
	quote.TaxAmount = breakdown.TaxAmount
	quote.GrandTotal = float64Ptr(breakdown.FinalPrice)
	quote.FinalPrice = float64Ptr(breakdown.FinalPrice)
	return quote, nil
}

// loadActiveItem fetches an item and hides soft-deleted rows.
func loadActiveItem(ctx context.Context, items repositories.ItemRepository, itemID string) (domain.Item, error) {
	item, err := items.FindByID(ctx, itemID)
	if err != nil {
		return domain.Item{}, translateRepoError(err, "item")
	}
	if !item.IsActive {
		return domain.Item{}, errItemNotFound
	}
	return item, nil
}

var errItemNotFound = fmt.Errorf("%w: item not found", ErrNotFound)
