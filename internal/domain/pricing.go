package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// PricingType names the strategy used to price an item.
type PricingType string

const (
	PricingStatic        PricingType = "static"
	PricingTiered        PricingType = "tiered"
	PricingComplimentary PricingType = "complimentary"
	PricingDiscounted    PricingType = "discounted"
	PricingDynamic       PricingType = "dynamic"
)

// DiscountType selects how a discount value is interpreted.
type DiscountType string

const (
	DiscountFlat       DiscountType = "flat"
	DiscountPercentage DiscountType = "percentage"
)

// PricingConfig is implemented by exactly one variant per pricing type.
type PricingConfig interface {
	Type() PricingType
	Validate() error
	pricingConfig()
}

// StaticPricing charges a fixed price.
type StaticPricing struct {
	Price float64
}

// PriceTier prices any duration up to and including Max.
type PriceTier struct {
	Max   float64
	Price float64
}

// TieredPricing selects a price by requested duration.
type TieredPricing struct {
	Tiers []PriceTier
}

// ComplimentaryPricing is always free.
type ComplimentaryPricing struct{}

// DiscountedPricing applies a flat or percentage discount to a base price.
type DiscountedPricing struct {
	BasePrice     float64
	DiscountType  DiscountType
	DiscountValue float64
}

// TimeWindow prices requests whose time of day falls in [Start, End).
type TimeWindow struct {
	Start ClockTime
	End   ClockTime
	Price float64
}

// Contains reports whether minute lies inside the half-open window.
func (w TimeWindow) Contains(minute ClockTime) bool {
	return w.Start <= minute && minute < w.End
}

// DynamicPricing prices by time of day.
type DynamicPricing struct {
	Windows []TimeWindow
}

func (StaticPricing) pricingConfig()        {}
func (TieredPricing) pricingConfig()        {}
func (ComplimentaryPricing) pricingConfig() {}
func (DiscountedPricing) pricingConfig()    {}
func (DynamicPricing) pricingConfig()       {}

func (StaticPricing) Type() PricingType        { return PricingStatic }
func (TieredPricing) Type() PricingType        { return PricingTiered }
func (ComplimentaryPricing) Type() PricingType { return PricingComplimentary }
func (DiscountedPricing) Type() PricingType    { return PricingDiscounted }
func (DynamicPricing) Type() PricingType       { return PricingDynamic }

func (p StaticPricing) Validate() error {
	if p.Price < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidPricing)
	}
	return nil
}

func (p TieredPricing) Validate() error {
	if len(p.Tiers) == 0 {
		return fmt.Errorf("%w: tiers are required for tiered pricing", ErrInvalidPricing)
	}
	for _, tier := range p.Tiers {
		if tier.Max < 0 {
			return fmt.Errorf("%w: tier max value cannot be negative", ErrInvalidPricing)
		}
		if tier.Price < 0 {
			return fmt.Errorf("%w: tier price cannot be negative", ErrInvalidPricing)
		}
	}
	sorted := p.Sorted()
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Max <= sorted[i-1].Max {
			return fmt.Errorf("%w: tiers must not overlap", ErrInvalidPricing)
		}
	}
	return nil
}

// Sorted returns a copy of the tiers ordered by Max ascending.
func (p TieredPricing) Sorted() []PriceTier {
	sorted := make([]PriceTier, len(p.Tiers))
	copy(sorted, p.Tiers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Max < sorted[j].Max })
	return sorted
}

func (ComplimentaryPricing) Validate() error { return nil }

func (p DiscountedPricing) Validate() error {
	if p.BasePrice < 0 {
		return fmt.Errorf("%w: base price cannot be negative", ErrInvalidPricing)
	}
	if p.DiscountValue < 0 {
		return fmt.Errorf("%w: discount value cannot be negative", ErrInvalidPricing)
	}
	switch p.DiscountType {
	case DiscountPercentage:
		if p.DiscountValue > 100 {
			return fmt.Errorf("%w: percentage discount cannot exceed 100", ErrInvalidPricing)
		}
	case DiscountFlat:
		if p.DiscountValue > p.BasePrice {
			return fmt.Errorf("%w: flat discount cannot exceed base price", ErrInvalidPricing)
		}
	default:
		return fmt.Errorf("%w: discount type must be either flat or percentage", ErrInvalidPricing)
	}
	return nil
}

// DiscountAmount is the amount subtracted from BasePrice.
func (p DiscountedPricing) DiscountAmount() float64 {
	if p.DiscountType == DiscountFlat {
		return p.DiscountValue
	}
	return p.BasePrice * p.DiscountValue / 100
}

func (p DynamicPricing) Validate() error {
	if len(p.Windows) == 0 {
		return fmt.Errorf("%w: time windows are required for dynamic pricing", ErrInvalidPricing)
	}
	for _, window := range p.Windows {
		if !window.Start.Valid() || !window.End.Valid() {
			return fmt.Errorf("%w: time window bounds must be valid times of day", ErrInvalidPricing)
		}
		if window.Start >= window.End {
			return fmt.Errorf("%w: time window %s-%s must start before it ends", ErrInvalidPricing, window.Start, window.End)
		}
		if window.Price < 0 {
			return fmt.Errorf("%w: time window price cannot be negative", ErrInvalidPricing)
		}
	}
	return nil
}

// PriceParams carries the optional request inputs for pricing.
type PriceParams struct {
	Duration    *float64
	RequestTime *time.Time
}

// AppliedRule records which part of a pricing configuration produced a price.
type AppliedRule struct {
	Type           PricingType
	Price          *float64
	Duration       *float64
	Tier           *PriceTier
	BasePrice      *float64
	DiscountType   DiscountType
	DiscountValue  *float64
	DiscountAmount *float64
	FinalPrice     *float64
	TimeWindow     *TimeWindow
	RequestTime    *time.Time
}

// PriceResult is the outcome of computing a base price.
type PriceResult struct {
	PricingType PricingType
	BasePrice   *float64
	AppliedRule AppliedRule
	Available   bool
	Message     string
}

// PricingDocument is the flat representation used on the wire and in storage.
type PricingDocument struct {
	Type          string               `json:"type" firestore:"type" bson:"type" yaml:"type"`
	Price         *float64             `json:"price,omitempty" firestore:"price,omitempty" bson:"price,omitempty" yaml:"price,omitempty"`
	Tiers         []PriceTierDocument  `json:"tiers,omitempty" firestore:"tiers,omitempty" bson:"tiers,omitempty" yaml:"tiers,omitempty"`
	BasePrice     *float64             `json:"basePrice,omitempty" firestore:"basePrice,omitempty" bson:"basePrice,omitempty" yaml:"basePrice,omitempty"`
	DiscountType  string               `json:"discountType,omitempty" firestore:"discountType,omitempty" bson:"discountType,omitempty" yaml:"discountType,omitempty"`
	DiscountValue *float64             `json:"discountValue,omitempty" firestore:"discountValue,omitempty" bson:"discountValue,omitempty" yaml:"discountValue,omitempty"`
	TimeWindows   []TimeWindowDocument `json:"timeWindows,omitempty" firestore:"timeWindows,omitempty" bson:"timeWindows,omitempty" yaml:"timeWindows,omitempty"`
}

// PriceTierDocument is the flat form of PriceTier.
type PriceTierDocument struct {
	Max   float64 `json:"max" firestore:"max" bson:"max" yaml:"max"`
	Price float64 `json:"price" firestore:"price" bson:"price" yaml:"price"`
}

// TimeWindowDocument is the flat form of TimeWindow.
type TimeWindowDocument struct {
	Start string  `json:"start" firestore:"start" bson:"start" yaml:"start"`
	End   string  `json:"end" firestore:"end" bson:"end" yaml:"end"`
	Price float64 `json:"price" firestore:"price" bson:"price" yaml:"price"`
}

// DecodePricing converts the flat form into its variant and validates it.
func DecodePricing(doc PricingDocument) (PricingConfig, error) {
	var cfg PricingConfig
	switch PricingType(strings.ToLower(strings.TrimSpace(doc.Type))) {
	case PricingStatic:
		if doc.Price == nil {
			return nil, fmt.Errorf("%w: price is required for static pricing", ErrInvalidPricing)
		}
		cfg = StaticPricing{Price: *doc.Price}
	case PricingTiered:
		tiers := make([]PriceTier, 0, len(doc.Tiers))
		for _, tier := range doc.Tiers {
			tiers = append(tiers, PriceTier{Max: tier.Max, Price: tier.Price})
		}
		cfg = TieredPricing{Tiers: tiers}
	case PricingComplimentary:
		cfg = ComplimentaryPricing{}
	case PricingDiscounted:
		if doc.BasePrice == nil {
			return nil, fmt.Errorf("%w: base price is required for discounted pricing", ErrInvalidPricing)
		}
		if strings.TrimSpace(doc.DiscountType) == "" {
			return nil, fmt.Errorf("%w: discount type is required for discounted pricing", ErrInvalidPricing)
		}
		if doc.DiscountValue == nil {
			return nil, fmt.Errorf("%w: discount value is required for discounted pricing", ErrInvalidPricing)
		}
		cfg = DiscountedPricing{
			BasePrice:     *doc.BasePrice,
			DiscountType:  DiscountType(strings.ToLower(strings.TrimSpace(doc.DiscountType))),
			DiscountValue: *doc.DiscountValue,
		}
	case PricingDynamic:
		windows := make([]TimeWindow, 0, len(doc.TimeWindows))
		for _, window := range doc.TimeWindows {
			start, err := ParseClockTime(window.Start)
			if err != nil {
				return nil, fmt.Errorf("%w: time window start %q must be HH:MM", ErrInvalidPricing, window.Start)
			}
			end, err := ParseClockTime(window.End)
			if err != nil {
				return nil, fmt.Errorf("%w: time window end %q must be HH:MM", ErrInvalidPricing, window.End)
			}
			windows = append(windows, TimeWindow{Start: start, End: end, Price: window.Price})
		}
		cfg = DynamicPricing{Windows: windows}
	default:
		return nil, fmt.Errorf("%w: pricing type must be one of: static, tiered, complimentary, discounted, dynamic", ErrInvalidPricing)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EncodePricing converts a variant into its flat form.
func EncodePricing(cfg PricingConfig) PricingDocument {
	switch p := cfg.(type) {
	case StaticPricing:
		return PricingDocument{Type: string(PricingStatic), Price: floatPtr(p.Price)}
	case TieredPricing:
		tiers := make([]PriceTierDocument, 0, len(p.Tiers))
		for _, tier := range p.Tiers {
			tiers = append(tiers, PriceTierDocument{Max: tier.Max, Price: tier.Price})
		}
		return PricingDocument{Type: string(PricingTiered), Tiers: tiers}
	case ComplimentaryPricing:
		return PricingDocument{Type: string(PricingComplimentary)}
	case DiscountedPricing:
		return PricingDocument{
			Type:          string(PricingDiscounted),
			BasePrice:     floatPtr(p.BasePrice),
			DiscountType:  string(p.DiscountType),
			DiscountValue: floatPtr(p.DiscountValue),
		}
	case DynamicPricing:
		windows := make([]TimeWindowDocument, 0, len(p.Windows))
		for _, window := range p.Windows {
			windows = append(windows, TimeWindowDocument{Start: window.Start.String(), End: window.End.String(), Price: window.Price})
		}
		return PricingDocument{Type: string(PricingDynamic), TimeWindows: windows}
	default:
		return PricingDocument{}
	}
}

func floatPtr(v float64) *float64 {
	return &v
}
