package handlers

import (
	domain "github.com/menuslot/api/internal/domain"
	"github.com/menuslot/api/internal/services"
)

type quotePayload struct {
	ItemID        string              `json:"itemId"`
	ItemName      string              `json:"itemName"`
	PricingType   string              `json:"pricingType"`
	BasePrice     *float64            `json:"basePrice"`
	AppliedRule   *appliedRulePayload `json:"appliedRule"`
	Available     bool                `json:"available"`
	Message       string              `json:"message,omitempty"`
	TaxApplicable bool                `json:"taxApplicable"`
	TaxPercentage float64             `json:"taxPercentage"`
	TaxAmount     float64             `json:"taxAmount"`
	GrandTotal    *float64            `json:"grandTotal"`
	FinalPrice    *float64            `json:"finalPrice"`
}

type appliedRulePayload struct {
	Type           string                     `json:"type"`
	Price          *float64                   `json:"price,omitempty"`
	Duration       *float64                   `json:"duration,omitempty"`
	Tier           *domain.PriceTierDocument  `json:"tier,omitempty"`
	BasePrice      *float64                   `json:"basePrice,omitempty"`
	DiscountType   string                     `json:"discountType,omitempty"`
	DiscountValue  *float64                   `json:"discountValue,omitempty"`
	DiscountAmount *float64                   `json:"discountAmount,omitempty"`
	FinalPrice     *float64                   `json:"finalPrice,omitempty"`
	TimeWindow     *domain.TimeWindowDocument `json:"timeWindow,omitempty"`
	RequestTime    string                     `json:"requestTime,omitempty"`
}

func buildQuotePayload(quote services.Quote) quotePayload {
	payload := quotePayload{
		ItemID:        quote.ItemID,
		ItemName:      quote.ItemName,
		PricingType:   string(quote.PricingType),
		BasePrice:     quote.BasePrice,
		Available:     quote.Available,
		Message:       quote.Message,
		TaxApplicable: quote.TaxApplicable,
		TaxPercentage: quote.TaxPercentage,
		TaxAmount:     quote.TaxAmount,
		GrandTotal:    quote.GrandTotal,
		FinalPrice:    quote.FinalPrice,
	}
	if quote.AppliedRule != nil {
		rule := buildAppliedRulePayload(*quote.AppliedRule)
		payload.AppliedRule = &rule
	}
	return payload
}

func buildAppliedRulePayload(rule domain.AppliedRule) appliedRulePayload {
	payload := appliedRulePayload{
		Type:           string(rule.Type),
		Price:          rule.Price,
		Duration:       rule.Duration,
		BasePrice:      rule.BasePrice,
		DiscountType:   string(rule.DiscountType),
		DiscountValue:  rule.DiscountValue,
		DiscountAmount: rule.DiscountAmount,
		FinalPrice:     rule.FinalPrice,
	}
	if rule.Tier != nil {
		payload.Tier = &domain.PriceTierDocument{Max: rule.Tier.Max, Price: rule.Tier.Price}
	}
	if rule.TimeWindow != nil {
		payload.TimeWindow = &domain.TimeWindowDocument{
			Start: rule.TimeWindow.Start.String(),
			End:   rule.TimeWindow.End.String(),
			Price: rule.TimeWindow.Price,
		}
	}
	if rule.RequestTime != nil {
		payload.RequestTime = formatTime(*rule.RequestTime)
	}
	return payload
}
