package services

import (
	"errors"
	"math"
	"testing"
	"time"

	domain "github.com/menuslot/api/internal/domain"
)

func newTestPricingEngine(now time.Time) PricingEngine {
	return NewPricingEngine(PricingEngineDeps{Clock: func() time.Time { return now }})
}

func TestPricingEngineStatic(t *testing.T) {
	engine := newTestPricingEngine(time.Now())
	result, err := engine.ComputeBasePrice(domain.StaticPricing{Price: 42}, domain.PriceParams{})
	if err != nil {
		t.Fatalf("ComputeBasePrice: %v", err)
	}
	if result.BasePrice == nil || *result.BasePrice != 42 || !result.Available {
		t.Fatalf("unexpected result %#v", result)
	}
	if result.AppliedRule.Type != domain.PricingStatic || *result.AppliedRule.Price != 42 {
		t.Fatalf("unexpected applied rule %#v", result.AppliedRule)
	}
}

func TestPricingEngineTieredBoundaries(t *testing.T) {
	engine := newTestPricingEngine(time.Now())
	cfg := domain.TieredPricing{Tiers: []domain.PriceTier{
		{Max: 4, Price: 80},
		{Max: 1, Price: 25},
		{Max: 2, Price: 45},
	}}

	cases := []struct {
		duration float64
		want     float64
		wantMax  float64
	}{
		{duration: 0, want: 25, wantMax: 1},
		{duration: 1, want: 25, wantMax: 1},
		{duration: 1.5, want: 45, wantMax: 2},
		{duration: 2, want: 45, wantMax: 2},
		{duration: 4, want: 80, wantMax: 4},
		{duration: 9, want: 80, wantMax: 4},
	}
	for _, tc := range cases {
		d := tc.duration
		result, err := engine.ComputeBasePrice(cfg, domain.PriceParams{Duration: &d})
		if err != nil {
			t.Fatalf("duration %v: %v", tc.duration, err)
		}
		if *result.BasePrice != tc.want {
			t.Fatalf("duration %v: expected %v, got %v", tc.duration, tc.want, *result.BasePrice)
		}
		if result.AppliedRule.Tier == nil || result.AppliedRule.Tier.Max != tc.wantMax {
			t.Fatalf("duration %v: unexpected tier %#v", tc.duration, result.AppliedRule.Tier)
		}
		if *result.AppliedRule.Duration != tc.duration {
			t.Fatalf("duration %v: applied rule duration %v", tc.duration, *result.AppliedRule.Duration)
		}
	}
}

func TestPricingEngineTieredRequiresDuration(t *testing.T) {
	engine := newTestPricingEngine(time.Now())
	cfg := domain.TieredPricing{Tiers: []domain.PriceTier{{Max: 1, Price: 10}}}

	if _, err := engine.ComputeBasePrice(cfg, domain.PriceParams{}); !errors.Is(err, ErrInvalidPricing) {
		t.Fatalf("expected ErrInvalidPricing for missing duration, got %v", err)
	}
	negative := -1.0
	if _, err := engine.ComputeBasePrice(cfg, domain.PriceParams{Duration: &negative}); !errors.Is(err, ErrInvalidPricing) {
		t.Fatalf("expected ErrInvalidPricing for negative duration, got %v", err)
	}

	for name, duration := range map[string]float64{
		"nan":          math.NaN(),
		"positive inf": math.Inf(1),
		"negative inf": math.Inf(-1),
	} {
		d := duration
		if _, err := engine.ComputeBasePrice(cfg, domain.PriceParams{Duration: &d}); !errors.Is(err, ErrInvalidPricing) {
			t.Fatalf("%s: expected ErrInvalidPricing, got %v", name, err)
		}
	}
}

func TestPricingEngineComplimentary(t *testing.T) {
	result, err := newTestPricingEngine(time.Now()).ComputeBasePrice(domain.ComplimentaryPricing{}, domain.PriceParams{})
	if err != nil {
		t.Fatalf("ComputeBasePrice: %v", err)
	}
	if *result.BasePrice != 0 || result.PricingType != domain.PricingComplimentary {
		t.Fatalf("unexpected result %#v", result)
	}
}

func TestPricingEngineDiscounted(t *testing.T) {
	engine := newTestPricingEngine(time.Now())

	flat, err := engine.ComputeBasePrice(domain.DiscountedPricing{BasePrice: 100, DiscountType: domain.DiscountFlat, DiscountValue: 30}, domain.PriceParams{})
	if err != nil {
		t.Fatalf("flat: %v", err)
	}
	if *flat.BasePrice != 70 || *flat.AppliedRule.FinalPrice != 70 || *flat.AppliedRule.BasePrice != 100 {
		t.Fatalf("unexpected flat result %#v", flat)
	}

	pct, err := engine.ComputeBasePrice(domain.DiscountedPricing{BasePrice: 80, DiscountType: domain.DiscountPercentage, DiscountValue: 25}, domain.PriceParams{})
	if err != nil {
		t.Fatalf("percentage: %v", err)
	}
	if *pct.BasePrice != 60 || *pct.AppliedRule.DiscountAmount != 20 {
		t.Fatalf("unexpected percentage result %#v", pct)
	}

	_, err = engine.ComputeBasePrice(domain.DiscountedPricing{BasePrice: 10, DiscountType: domain.DiscountFlat, DiscountValue: 15}, domain.PriceParams{})
	if !errors.Is(err, ErrInvalidPricing) {
		t.Fatalf("expected ErrInvalidPricing for negative final price, got %v", err)
	}
}

func TestPricingEngineDynamicHalfOpenWindows(t *testing.T) {
	cfg := domain.DynamicPricing{Windows: []domain.TimeWindow{
		{Start: domain.MustClockTime("08:00"), End: domain.MustClockTime("11:00"), Price: 5},
		{Start: domain.MustClockTime("10:00"), End: domain.MustClockTime("14:00"), Price: 9},
	}}
	engine := newTestPricingEngine(time.Now())
	at := func(hh, mm int) *time.Time {
		ts := time.Date(2025, 5, 5, hh, mm, 0, 0, time.UTC)
		return &ts
	}

	start, err := engine.ComputeBasePrice(cfg, domain.PriceParams{RequestTime: at(8, 0)})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !start.Available || *start.BasePrice != 5 {
		t.Fatalf("expected window start to be priced at 5, got %#v", start)
	}

	overlap, err := engine.ComputeBasePrice(cfg, domain.PriceParams{RequestTime: at(10, 30)})
	if err != nil {
		t.Fatalf("overlap: %v", err)
	}
	if *overlap.BasePrice != 5 {
		t.Fatalf("expected first declared window to win, got %v", *overlap.BasePrice)
	}

	end, err := engine.ComputeBasePrice(cfg, domain.PriceParams{RequestTime: at(11, 0)})
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if *end.BasePrice != 9 || end.AppliedRule.TimeWindow.Start != domain.MustClockTime("10:00") {
		t.Fatalf("expected 11:00 to fall in second window, got %#v", end)
	}

	closed, err := engine.ComputeBasePrice(cfg, domain.PriceParams{RequestTime: at(14, 0)})
	if err != nil {
		t.Fatalf("closed: %v", err)
	}
	if closed.Available || closed.BasePrice != nil || closed.Message == "" {
		t.Fatalf("expected unavailable result, got %#v", closed)
	}
}

func TestPricingEngineDynamicDefaultsToClock(t *testing.T) {
	now := time.Date(2025, 5, 5, 19, 15, 0, 0, time.UTC)
	cfg := domain.DynamicPricing{Windows: []domain.TimeWindow{
		{Start: domain.MustClockTime("18:00"), End: domain.MustClockTime("22:00"), Price: 12},
	}}
	result, err := newTestPricingEngine(now).ComputeBasePrice(cfg, domain.PriceParams{})
	if err != nil {
		t.Fatalf("ComputeBasePrice: %v", err)
	}
	if *result.BasePrice != 12 || !result.AppliedRule.RequestTime.Equal(now) {
		t.Fatalf("unexpected result %#v", result)
	}
}

func TestPricingEngineDynamicUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	engine := NewPricingEngine(PricingEngineDeps{Location: tokyo})
	cfg := domain.DynamicPricing{Windows: []domain.TimeWindow{
		{Start: domain.MustClockTime("09:00"), End: domain.MustClockTime("10:00"), Price: 3},
	}}
	utc := time.Date(2025, 5, 5, 0, 30, 0, 0, time.UTC)
	result, err := engine.ComputeBasePrice(cfg, domain.PriceParams{RequestTime: &utc})
	if err != nil {
		t.Fatalf("ComputeBasePrice: %v", err)
	}
	if !result.Available || *result.BasePrice != 3 {
		t.Fatalf("expected 09:30 local to be priced, got %#v", result)
	}
}

func TestPricingEngineRejectsMissingConfig(t *testing.T) {
	if _, err := newTestPricingEngine(time.Now()).ComputeBasePrice(nil, domain.PriceParams{}); !errors.Is(err, ErrInvalidPricing) {
		t.Fatalf("expected ErrInvalidPricing, got %v", err)
	}
}
