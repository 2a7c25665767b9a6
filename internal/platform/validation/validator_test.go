package validation

import (
	"errors"
	"strings"
	"testing"

	domain "github.com/menuslot/api/internal/domain"
)

type slotPayload struct {
	Start string `json:"start" validate:"required,hhmm"`
	End   string `json:"end" validate:"required,hhmm"`
}

type itemPayload struct {
	Name      string        `json:"name" validate:"required"`
	Days      []string      `json:"availableDays" validate:"omitempty,dive,weekday"`
	Slots     []slotPayload `json:"timeSlots" validate:"omitempty,dive"`
	Email     *string       `json:"customerEmail" validate:"omitempty,email"`
	TaxFactor *float64      `json:"taxPercentage" validate:"omitempty,gte=0,lte=100"`
}

func TestStructAcceptsValidPayload(t *testing.T) {
	email := "guest@example.com"
	pct := 18.0
	err := Struct(itemPayload{
		Name:      "Chef's table",
		Days:      []string{"monday", "FRIDAY"},
		Slots:     []slotPayload{{Start: "09:00", End: "23:59"}},
		Email:     &email,
		TaxFactor: &pct,
	})
	if err != nil {
		t.Fatalf("expected payload to validate, got %v", err)
	}
}

func TestStructReportsEveryField(t *testing.T) {
	email := "not-an-email"
	pct := 140.0
	err := Struct(itemPayload{
		Days:      []string{"Funday"},
		Slots:     []slotPayload{{Start: "9:00", End: "24:00"}},
		Email:     &email,
		TaxFactor: &pct,
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	for _, field := range []string{"name", "availableDays[0]", "timeSlots[0].start", "timeSlots[0].end", "customerEmail", "taxPercentage"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Fatalf("expected failure for %s, got %v", field, verr.Fields)
		}
	}
	if !strings.Contains(verr.Fields["timeSlots[0].start"], "HH:MM") {
		t.Fatalf("unexpected message %q", verr.Fields["timeSlots[0].start"])
	}
}
