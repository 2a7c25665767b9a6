package services

import (
	"fmt"
	"math"
	"time"

	domain "github.com/menuslot/api/internal/domain"
)

const dynamicUnavailableMessage = "Item is not available at this time"

// PricingEngineDeps configures the pricing engine.
type PricingEngineDeps struct {
	Clock func() time.Time
	// Location is used to read the minute of day of a request time. Defaults to UTC.
	Location *time.Location
}

type pricingEngine struct {
	now func() time.Time
	loc *time.Location
}

var _ PricingEngine = (*pricingEngine)(nil)

// NewPricingEngine constructs the stateless pricing engine.
func NewPricingEngine(deps PricingEngineDeps) PricingEngine {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &pricingEngine{now: clock, loc: loc}
}

func (e *pricingEngine) ComputeBasePrice(cfg domain.PricingConfig, params domain.PriceParams) (domain.PriceResult, error) {
	switch p := cfg.(type) {
	case domain.StaticPricing:
		return e.static(p)
	case domain.TieredPricing:
		return e.tiered(p, params.Duration)
	case domain.ComplimentaryPricing:
		return priced(domain.PricingComplimentary, 0, domain.AppliedRule{Type: domain.PricingComplimentary}), nil
	case domain.DiscountedPricing:
		return e.discounted(p)
	case domain.DynamicPricing:
		return e.dynamic(p, params.RequestTime)
	case nil:
		return domain.PriceResult{}, fmt.Errorf("%w: pricing configuration not found", ErrInvalidPricing)
	default:
		return domain.PriceResult{}, fmt.Errorf("%w: unsupported pricing type %s", ErrInvalidPricing, cfg.Type())
	}
}

func (e *pricingEngine) static(p domain.StaticPricing) (domain.PriceResult, error) {
	if p.Price < 0 {
		return domain.PriceResult{}, fmt.Errorf("%w: price cannot be negative", ErrInvalidPricing)
	}
	return priced(domain.PricingStatic, p.Price, domain.AppliedRule{
		Type:  domain.PricingStatic,
		Price: float64Ptr(p.Price),
	}), nil
}

// tiered picks the first tier whose max covers the duration, falling back to the
// ceiling tier when the duration exceeds every tier.
func (e *pricingEngine) tiered(p domain.TieredPricing, duration *float64) (domain.PriceResult, error) {
	if len(p.Tiers) == 0 {
		return domain.PriceResult{}, fmt.Errorf("%w: tiers are required for tiered pricing", ErrInvalidPricing)
	}
	if duration == nil {
		return domain.PriceResult{}, fmt.Errorf("%w: duration parameter is required for tiered pricing", ErrInvalidPricing)
	}
	if math.IsNaN(*duration) || math.IsInf(*duration, 0) {
		return domain.PriceResult{}, fmt.Errorf("%w: duration must be a finite number", ErrInvalidPricing)
	}
	if *duration < 0 {
		return domain.PriceResult{}, fmt.Errorf("%w: duration cannot be negative", ErrInvalidPricing)
	}

	tiers := p.Sorted()
	selected := tiers[len(tiers)-1]
	for _, tier := range tiers {
		if *duration <= tier.Max {
			selected = tier
			break
		}
	}

	return priced(domain.PricingTiered, selected.Price, domain.AppliedRule{
		Type:     domain.PricingTiered,
		Duration: float64Ptr(*duration),
		Tier:     &selected,
	}), nil
}

func (e *pricingEngine) discounted(p domain.DiscountedPricing) (domain.PriceResult, error) {
	if p.DiscountType != domain.DiscountFlat && p.DiscountType != domain.DiscountPercentage {
		return domain.PriceResult{}, fmt.Errorf("%w: discount type must be either flat or percentage", ErrInvalidPricing)
	}
	amount := p.DiscountAmount()
	final := p.BasePrice - amount
	if final < 0 {
		return domain.PriceResult{}, fmt.Errorf("%w: final price cannot be negative", ErrInvalidPricing)
	}
	return priced(domain.PricingDiscounted, final, domain.AppliedRule{
		Type:           domain.PricingDiscounted,
		BasePrice:      float64Ptr(p.BasePrice),
		DiscountType:   p.DiscountType,
		DiscountValue:  float64Ptr(p.DiscountValue),
		DiscountAmount: float64Ptr(amount),
		FinalPrice:     float64Ptr(final),
	}), nil
}

// dynamic scans windows in declaration order; the first window containing the
// request minute wins. No match is a valid unavailable result.
func (e *pricingEngine) dynamic(p domain.DynamicPricing, requestTime *time.Time) (domain.PriceResult, error) {
	if len(p.Windows) == 0 {
		return domain.PriceResult{}, fmt.Errorf("%w: time windows are required for dynamic pricing", ErrInvalidPricing)
	}
	at := e.now()
	if requestTime != nil {
		at = *requestTime
	}
	minute := domain.ClockTimeOf(at.In(e.loc))

	for _, window := range p.Windows {
		if !window.Contains(minute) {
			continue
		}
		matched := window
		return priced(domain.PricingDynamic, window.Price, domain.AppliedRule{
			Type:        domain.PricingDynamic,
			TimeWindow:  &matched,
			RequestTime: &at,
		}), nil
	}

	return domain.PriceResult{
		PricingType: domain.PricingDynamic,
		AppliedRule: domain.AppliedRule{Type: domain.PricingDynamic, RequestTime: &at},
		Available:   false,
		Message:     dynamicUnavailableMessage,
	}, nil
}

func priced(kind domain.PricingType, price float64, rule domain.AppliedRule) domain.PriceResult {
	return domain.PriceResult{
		PricingType: kind,
		BasePrice:   float64Ptr(price),
		AppliedRule: rule,
		Available:   true,
	}
}

func float64Ptr(v float64) *float64 {
	return &v
}
