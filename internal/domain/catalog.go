package domain

import (
	"fmt"
	"strings"
	"time"
)

// TaxRule is the tax configuration carried by categories and subcategories.
// A nil Applicable on a subcategory defers to the parent category.
type TaxRule struct {
	Applicable *bool
	Percentage *float64
}

// IsSet reports whether the rule states an explicit applicability.
func (r TaxRule) IsSet() bool {
	return r.Applicable != nil
}

// Validate enforces the percentage bounds and presence.
func (r TaxRule) Validate() error {
	if r.Percentage != nil && (*r.Percentage < 0 || *r.Percentage > 100) {
		return fmt.Errorf("%w: tax percentage must be between 0 and 100", ErrInvalidInput)
	}
	if r.Applicable != nil && *r.Applicable && r.Percentage == nil {
		return fmt.Errorf("%w: tax percentage is required when tax is applicable", ErrInvalidInput)
	}
	return nil
}

// TaxInfo is the effective tax for an item after inheritance.
type TaxInfo struct {
	Applicable bool
	Percentage float64
}

// Category is the top level of the catalog, scoped to a restaurant.
type Category struct {
	ID           string
	RestaurantID string
	Name         string
	Image        *string
	Description  *string
	Tax          TaxRule
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks write-time invariants.
func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(c.RestaurantID) == "" {
		return fmt.Errorf("%w: restaurant id is required", ErrInvalidInput)
	}
	return c.Tax.Validate()
}

// Subcategory groups items under a category and may override its tax rule.
type Subcategory struct {
	ID          string
	CategoryID  string
	Name        string
	Image       *string
	Description *string
	Tax         TaxRule
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks write-time invariants.
func (s Subcategory) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: subcategory name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(s.CategoryID) == "" {
		return fmt.Errorf("%w: category reference is required", ErrInvalidInput)
	}
	return s.Tax.Validate()
}

// ParentKind says which collection an item hangs off.
type ParentKind string

const (
	ParentCategory    ParentKind = "category"
	ParentSubcategory ParentKind = "subcategory"
)

// ItemParent references the single category or subcategory owning an item.
type ItemParent struct {
	Kind ParentKind
	ID   string
}

// NewItemParent builds a parent from the two optional references, requiring exactly one.
func NewItemParent(categoryID, subcategoryID string) (ItemParent, error) {
	categoryID = strings.TrimSpace(categoryID)
	subcategoryID = strings.TrimSpace(subcategoryID)
	switch {
	case categoryID == "" && subcategoryID == "":
		return ItemParent{}, fmt.Errorf("%w: item must belong to either a category or subcategory", ErrInvalidInput)
	case categoryID != "" && subcategoryID != "":
		return ItemParent{}, fmt.Errorf("%w: item cannot belong to both category and subcategory", ErrInvalidInput)
	case subcategoryID != "":
		return ItemParent{Kind: ParentSubcategory, ID: subcategoryID}, nil
	default:
		return ItemParent{Kind: ParentCategory, ID: categoryID}, nil
	}
}

// CategoryID returns the id when the parent is a category.
func (p ItemParent) CategoryID() string {
	if p.Kind == ParentCategory {
		return p.ID
	}
	return ""
}

// SubcategoryID returns the id when the parent is a subcategory.
func (p ItemParent) SubcategoryID() string {
	if p.Kind == ParentSubcategory {
		return p.ID
	}
	return ""
}

// TimeSlot is a bookable daily interval [Start, End).
type TimeSlot struct {
	Start ClockTime
	End   ClockTime
}

// Usable reports whether the slot has positive length.
func (s TimeSlot) Usable() bool {
	return s.End > s.Start
}

// Covers reports whether [start, end) lies fully inside the slot.
func (s TimeSlot) Covers(start, end ClockTime) bool {
	return start >= s.Start && end <= s.End
}

// Availability is an item's weekly booking schedule.
type Availability struct {
	Days  []time.Weekday
	Slots []TimeSlot
}

// Bookable reports whether the schedule has at least one day and one slot.
func (a Availability) Bookable() bool {
	return len(a.Days) > 0 && len(a.Slots) > 0
}

// OpenOn reports whether day is one of the scheduled weekdays.
func (a Availability) OpenOn(day time.Weekday) bool {
	for _, d := range a.Days {
		if d == day {
			return true
		}
	}
	return false
}

// Validate rejects malformed slot bounds.
func (a Availability) Validate() error {
	for _, slot := range a.Slots {
		if !slot.Start.Valid() || !slot.End.Valid() {
			return fmt.Errorf("%w: time slot bounds must be valid times of day", ErrInvalidInput)
		}
		if !slot.Usable() {
			return fmt.Errorf("%w: time slot %s-%s must start before it ends", ErrInvalidInput, slot.Start, slot.End)
		}
	}
	return nil
}

// Item is a menu entry with its pricing and optional booking schedule.
type Item struct {
	ID           string
	Name         string
	Description  *string
	Image        *string
	IsActive     bool
	Parent       ItemParent
	Pricing      PricingConfig
	Availability Availability
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Bookable reports whether the item accepts bookings.
func (i Item) Bookable() bool {
	return i.Availability.Bookable()
}

// Validate checks write-time invariants.
func (i Item) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: item name is required", ErrInvalidInput)
	}
	if _, err := NewItemParent(i.Parent.CategoryID(), i.Parent.SubcategoryID()); err != nil {
		return err
	}
	if i.Pricing == nil {
		return fmt.Errorf("%w: pricing configuration is required", ErrInvalidPricing)
	}
	if err := i.Pricing.Validate(); err != nil {
		return err
	}
	return i.Availability.Validate()
}

// ItemRef is the trimmed item projection embedded in bookings and add-ons.
type ItemRef struct {
	ID          string
	Name        string
	Description *string
}

// Ref projects the item.
func (i Item) Ref() ItemRef {
	return ItemRef{ID: i.ID, Name: i.Name, Description: i.Description}
}

// AddOn is an optional extra sold with an item.
type AddOn struct {
	ID          string
	ItemID      string
	Name        string
	Description *string
	Price       float64
	IsMandatory bool
	Group       *string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks write-time invariants.
func (a AddOn) Validate() error {
	if strings.TrimSpace(a.ItemID) == "" {
		return fmt.Errorf("%w: item reference is required", ErrInvalidInput)
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: addon name is required", ErrInvalidInput)
	}
	if a.Price < 0 {
		return fmt.Errorf("%w: addon price cannot be negative", ErrInvalidInput)
	}
	return nil
}

// Page is an offset-paginated slice of results.
type Page[T any] struct {
	Items []T
	Total int
	Page  int
	Limit int
}

// SortOrder is the direction of a listing sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ListOptions holds the shared pagination and sort inputs of listing endpoints.
type ListOptions struct {
	Page  int
	Limit int
	Sort  string
	Order SortOrder
}

// Offset is the number of rows skipped before the page.
func (o ListOptions) Offset() int {
	if o.Page <= 1 || o.Limit <= 0 {
		return 0
	}
	return (o.Page - 1) * o.Limit
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
	DefaultSortField = "createdAt"
)

// SortFields lists the fields listings may be ordered by.
var SortFields = []string{"createdAt", "updatedAt", "name"}

// WithDefaults fills unset options and clamps the limit.
func (o ListOptions) WithDefaults() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit <= 0 {
		o.Limit = DefaultPageLimit
	}
	if o.Limit > MaxPageLimit {
		o.Limit = MaxPageLimit
	}
	if o.Sort == "" {
		o.Sort = DefaultSortField
	}
	if o.Order != SortAsc {
		o.Order = SortDesc
	}
	return o
}
