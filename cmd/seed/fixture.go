package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	domain "github.com/menuslot/api/internal/domain"
	"github.com/menuslot/api/internal/services"
)

// Fixture is a restaurant catalog described as nested YAML.
type Fixture struct {
	RestaurantID string            `yaml:"restaurant_id"`
	Categories   []CategoryFixture `yaml:"categories"`
}

type TaxFixture struct {
	Applicable *bool    `yaml:"applicable"`
	Percentage *float64 `yaml:"percentage"`
}

type CategoryFixture struct {
	Name          string               `yaml:"name"`
	Description   string               `yaml:"description"`
	Image         string               `yaml:"image"`
	Tax           *TaxFixture          `yaml:"tax"`
	Subcategories []SubcategoryFixture `yaml:"subcategories"`
	Items         []ItemFixture        `yaml:"items"`
}

type SubcategoryFixture struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Image       string        `yaml:"image"`
	Tax         *TaxFixture   `yaml:"tax"`
	Items       []ItemFixture `yaml:"items"`
}

type ItemFixture struct {
	Name         string                 `yaml:"name"`
	Description  string                 `yaml:"description"`
	Image        string                 `yaml:"image"`
	Pricing      domain.PricingDocument `yaml:"pricing"`
	Availability *AvailabilityFixture   `yaml:"availability"`
	AddOns       []AddOnFixture         `yaml:"addons"`
}

type AvailabilityFixture struct {
	Days  []string      `yaml:"days"`
	Slots []SlotFixture `yaml:"slots"`
}

type SlotFixture struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type AddOnFixture struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Price       float64 `yaml:"price"`
	Mandatory   bool    `yaml:"mandatory"`
	Group       string  `yaml:"group"`
}

// Summary counts the entities created by Apply.
type Summary struct {
	Categories    int
	Subcategories int
	Items         int
	AddOns        int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d categories, %d subcategories, %d items, %d add-ons",
		s.Categories, s.Subcategories, s.Items, s.AddOns)
}

// Parse decodes a fixture document and checks the structure the services cannot see,
// such as unknown keys and missing names.
func Parse(data []byte) (Fixture, error) {
	var fixture Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fixture); err != nil {
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}
	fixture.RestaurantID = strings.TrimSpace(fixture.RestaurantID)
	if fixture.RestaurantID == "" {
		return Fixture{}, errors.New("fixture: restaurant_id is required")
	}
	for i, category := range fixture.Categories {
		if strings.TrimSpace(category.Name) == "" {
			return Fixture{}, fmt.Errorf("fixture: categories[%d].name is required", i)
		}
		for j, sub := range category.Subcategories {
			if strings.TrimSpace(sub.Name) == "" {
				return Fixture{}, fmt.Errorf("fixture: categories[%d].subcategories[%d].name is required", i, j)
			}
		}
	}
	return fixture, nil
}

// Apply creates every entity of the fixture through the catalog service, parents first.
// It stops at the first rejected entity and returns what was created so far.
func Apply(ctx context.Context, catalog services.CatalogService, fixture Fixture) (Summary, error) {
	var summary Summary
	if catalog == nil {
		return summary, errors.New("seed: catalog service is required")
	}
	for _, cf := range fixture.Categories {
		category, err := catalog.CreateCategory(ctx, services.CategoryCommand{
			RestaurantID: fixture.RestaurantID,
			Name:         cf.Name,
			Image:        optional(cf.Image),
			Description:  optional(cf.Description),
			Tax:          cf.Tax.rule(),
		})
		if err != nil {
			return summary, fmt.Errorf("category %q: %w", cf.Name, err)
		}
		summary.Categories++

		for _, item := range cf.Items {
			if err := applyItem(ctx, catalog, category.ID, "", item, &summary); err != nil {
				return summary, fmt.Errorf("category %q: %w", cf.Name, err)
			}
		}

		for _, sf := range cf.Subcategories {
			sub, err := catalog.CreateSubcategory(ctx, services.SubcategoryCommand{
				CategoryID:  category.ID,
				Name:        sf.Name,
				Image:       optional(sf.Image),
				Description: optional(sf.Description),
				Tax:         sf.Tax.rule(),
			})
			if err != nil {
				return summary, fmt.Errorf("subcategory %q: %w", sf.Name, err)
			}
			summary.Subcategories++

			for _, item := range sf.Items {
				if err := applyItem(ctx, catalog, "", sub.ID, item, &summary); err != nil {
					return summary, fmt.Errorf("subcategory %q: %w", sf.Name, err)
				}
			}
		}
	}
	return summary, nil
}

func applyItem(ctx context.Context, catalog services.CatalogService, categoryID, subcategoryID string, fixture ItemFixture, summary *Summary) error {
	cmd := services.ItemCommand{
		Name:          fixture.Name,
		Description:   optional(fixture.Description),
		Image:         optional(fixture.Image),
		CategoryID:    categoryID,
		SubcategoryID: subcategoryID,
		Pricing:       fixture.Pricing,
	}
	if fixture.Availability != nil {
		cmd.AvailableDays = fixture.Availability.Days
		for _, slot := range fixture.Availability.Slots {
			cmd.TimeSlots = append(cmd.TimeSlots, services.TimeSlotInput{Start: slot.Start, End: slot.End})
		}
	}
	view, err := catalog.CreateItem(ctx, cmd)
	if err != nil {
		return fmt.Errorf("item %q: %w", fixture.Name, err)
	}
	summary.Items++

	for _, addon := range fixture.AddOns {
		if _, err := catalog.CreateAddOn(ctx, services.AddOnCommand{
			ItemID:      view.Item.ID,
			Name:        addon.Name,
			Description: optional(addon.Description),
			Price:       addon.Price,
			IsMandatory: addon.Mandatory,
			Group:       optional(addon.Group),
		}); err != nil {
			return fmt.Errorf("item %q add-on %q: %w", fixture.Name, addon.Name, err)
		}
		summary.AddOns++
	}
	return nil
}

func (t *TaxFixture) rule() domain.TaxRule {
	if t == nil {
		return domain.TaxRule{}
	}
	return domain.TaxRule{Applicable: t.Applicable, Percentage: t.Percentage}
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
