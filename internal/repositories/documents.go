package repositories

import (
	"fmt"

	domain "github.com/menuslot/api/internal/domain"
)

// TimeSlotDocument is the stored form of a daily slot, with HH:MM bounds.
type TimeSlotDocument struct {
	Start string `firestore:"start" bson:"start"`
	End   string `firestore:"end" bson:"end"`
}

// EncodeAvailability flattens a schedule into weekday names and HH:MM slots.
func EncodeAvailability(a domain.Availability) ([]string, []TimeSlotDocument) {
	days := make([]string, 0, len(a.Days))
	for _, day := range a.Days {
		days = append(days, day.String())
	}
	slots := make([]TimeSlotDocument, 0, len(a.Slots))
	for _, slot := range a.Slots {
		slots = append(slots, TimeSlotDocument{Start: slot.Start.String(), End: slot.End.String()})
	}
	return days, slots
}

// DecodeAvailability is the inverse of EncodeAvailability.
func DecodeAvailability(days []string, slots []TimeSlotDocument) (domain.Availability, error) {
	out := domain.Availability{}
	for _, name := range days {
		day, err := domain.ParseWeekday(name)
		if err != nil {
			return domain.Availability{}, fmt.Errorf("decode availability: %w", err)
		}
		out.Days = append(out.Days, day)
	}
	for _, slot := range slots {
		start, err := domain.ParseClockTime(slot.Start)
		if err != nil {
			return domain.Availability{}, fmt.Errorf("decode availability: %w", err)
		}
		end, err := domain.ParseClockTime(slot.End)
		if err != nil {
			return domain.Availability{}, fmt.Errorf("decode availability: %w", err)
		}
		out.Slots = append(out.Slots, domain.TimeSlot{Start: start, End: end})
	}
	return out, nil
}

// DecodeItemParent rebuilds the parent from the stored category and subcategory ids.
func DecodeItemParent(categoryID, subcategoryID string) (domain.ItemParent, error) {
	parent, err := domain.NewItemParent(categoryID, subcategoryID)
	if err != nil {
		return domain.ItemParent{}, fmt.Errorf("decode item parent: %w", err)
	}
	return parent, nil
}
