package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/menuslot/api/internal/domain"
	"github.com/menuslot/api/internal/platform/textutil"
	"github.com/menuslot/api/internal/repositories"
)

// CatalogServiceDeps bundles collaborators required to construct a catalog service.
type CatalogServiceDeps struct {
	Categories    repositories.CategoryRepository
	Subcategories repositories.SubcategoryRepository
	Items         repositories.ItemRepository
	AddOns        repositories.AddOnRepository
	Quotes        QuoteService
	Tax           TaxResolver
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        func(context.Context, string, map[string]any)
}

type catalogService struct {
	categories    repositories.CategoryRepository
	subcategories repositories.SubcategoryRepository
	items         repositories.ItemRepository
	addons        repositories.AddOnRepository
	quotes        QuoteService
	tax           TaxResolver
	clock         func() time.Time
	newID         func() string
	logger        func(context.Context, string, map[string]any)
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService constructs the catalog CRUD service.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	switch {
	case deps.Categories == nil:
		return nil, errors.New("catalog service: category repository is required")
	case deps.Subcategories == nil:
		return nil, errors.New("catalog service: subcategory repository is required")
	case deps.Items == nil:
		return nil, errors.New("catalog service: item repository is required")
	case deps.AddOns == nil:
		return nil, errors.New("catalog service: addon repository is required")
	case deps.Quotes == nil:
		return nil, errors.New("catalog service: quote service is required")
	case deps.Tax == nil:
		return nil, errors.New("catalog service: tax resolver is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &catalogService{
		categories:    deps.Categories,
		subcategories: deps.Subcategories,
		items:         deps.Items,
		addons:        deps.AddOns,
		quotes:        deps.Quotes,
		tax:           deps.Tax,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// Categories -----------------------------------------------------------------

func (s *catalogService) CreateCategory(ctx context.Context, cmd CategoryCommand) (domain.Category, error) {
	now := s.clock()
	category := domain.Category{
		ID:           s.newID(),
		RestaurantID: strings.TrimSpace(cmd.RestaurantID),
		Name:         textutil.CleanText(cmd.Name),
		Image:        trimOptional(cmd.Image),
		Description:  textutil.CleanOptional(cmd.Description),
		Tax:          cmd.Tax,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := category.Validate(); err != nil {
		return domain.Category{}, err
	}
	stored, err := s.categories.Insert(ctx, category)
	if err != nil {
		return domain.Category{}, translateRepoError(err, "category")
	}
	s.logger(ctx, "catalog.category_created", map[string]any{"categoryID": stored.ID, "restaurantID": stored.RestaurantID})
	return stored, nil
}

func (s *catalogService) ListCategories(ctx context.Context, filter CategoryListQuery) (domain.Page[domain.Category], error) {
	page, err := s.categories.List(ctx, repositories.CategoryListFilter{
		RestaurantID: strings.TrimSpace(filter.RestaurantID),
		Options:      filter.Options.WithDefaults(),
	})
	if err != nil {
		return domain.Page[domain.Category]{}, translateRepoError(err, "category")
	}
	return page, nil
}

func (s *catalogService) GetCategory(ctx context.Context, categoryID string) (domain.Category, error) {
	category, err := s.findCategory(ctx, categoryID)
	if err != nil {
		return domain.Category{}, err
	}
	if !category.IsActive {
		return domain.Category{}, fmt.Errorf("%w: category not found", ErrNotFound)
	}
	return category, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, categoryID string, patch CategoryPatch) (domain.Category, error) {
	category, err := s.findCategory(ctx, categoryID)
	if err != nil {
		return domain.Category{}, err
	}
	if patch.Name != nil {
		category.Name = textutil.CleanText(*patch.Name)
	}
	if patch.Image != nil {
		category.Image = trimOptional(patch.Image)
	}
	if patch.Description != nil {
		category.Description = textutil.CleanOptional(patch.Description)
	}
	if patch.Tax != nil {
		if patch.Tax.Applicable != nil {
			category.Tax.Applicable = patch.Tax.Applicable
		}
		if patch.Tax.Percentage != nil {
			category.Tax.Percentage = patch.Tax.Percentage
		}
	}
	if err := category.Validate(); err != nil {
		return domain.Category{}, err
	}
	category.UpdatedAt = s.clock()
	updated, err := s.categories.Update(ctx, category)
	if err != nil {
		return domain.Category{}, translateRepoError(err, "category")
	}
	return updated, nil
}

func (s *catalogService) DeactivateCategory(ctx context.Context, categoryID string) (domain.Category, error) {
	category, err := s.findCategory(ctx, categoryID)
	if err != nil {
		return domain.Category{}, err
	}
	category.IsActive = false
	category.UpdatedAt = s.clock()
	updated, err := s.categories.Update(ctx, category)
	if err != nil {
		return domain.Category{}, translateRepoError(err, "category")
	}
	return updated, nil
}

func (s *catalogService) findCategory(ctx context.Context, categoryID string) (domain.Category, error) {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return domain.Category{}, fmt.Errorf("%w: category id is required", ErrInvalidInput)
	}
	category, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		return domain.Category{}, translateRepoError(err, "category")
	}
	return category, nil
}

// Subcategories --------------------------------------------------------------

func (s *catalogService) CreateSubcategory(ctx context.Context, cmd SubcategoryCommand) (domain.Subcategory, error) {
	categoryID := strings.TrimSpace(cmd.CategoryID)
	if err := s.requireActiveCategory(ctx, categoryID); err != nil {
		return domain.Subcategory{}, err
	}
	now := s.clock()
	sub := domain.Subcategory{
		ID:          s.newID(),
		CategoryID:  categoryID,
		Name:        textutil.CleanText(cmd.Name),
		Image:       trimOptional(cmd.Image),
		Description: textutil.CleanOptional(cmd.Description),
		Tax:         cmd.Tax,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := sub.Validate(); err != nil {
		return domain.Subcategory{}, err
	}
	stored, err := s.subcategories.Insert(ctx, sub)
	if err != nil {
		return domain.Subcategory{}, translateRepoError(err, "subcategory")
	}
	return stored, nil
}

func (s *catalogService) ListSubcategories(ctx context.Context, filter SubcategoryListQuery) (domain.Page[domain.Subcategory], error) {
	page, err := s.subcategories.List(ctx, repositories.SubcategoryListFilter{
		CategoryID: strings.TrimSpace(filter.CategoryID),
		Options:    filter.Options.WithDefaults(),
	})
	if err != nil {
		return domain.Page[domain.Subcategory]{}, translateRepoError(err, "subcategory")
	}
	return page, nil
}

func (s *catalogService) GetSubcategory(ctx context.Context, subcategoryID string) (domain.Subcategory, error) {
	sub, err := s.findSubcategory(ctx, subcategoryID)
	if err != nil {
		return domain.Subcategory{}, err
	}
	if !sub.IsActive {
		return domain.Subcategory{}, fmt.Errorf("%w: subcategory not found", ErrNotFound)
	}
	return sub, nil
}

func (s *catalogService) UpdateSubcategory(ctx context.Context, subcategoryID string, patch SubcategoryPatch) (domain.Subcategory, error) {
	sub, err := s.findSubcategory(ctx, subcategoryID)
	if err != nil {
		return domain.Subcategory{}, err
	}
	if patch.Name != nil {
		sub.Name = textutil.CleanText(*patch.Name)
	}
	if patch.Image != nil {
		sub.Image = trimOptional(patch.Image)
	}
	if patch.Description != nil {
		sub.Description = textutil.CleanOptional(patch.Description)
	}
	if patch.TaxSet {
		sub.Tax = patch.Tax
	}
	if err := sub.Validate(); err != nil {
		return domain.Subcategory{}, err
	}
	sub.UpdatedAt = s.clock()
	updated, err := s.subcategories.Update(ctx, sub)
	if err != nil {
		return domain.Subcategory{}, translateRepoError(err, "subcategory")
	}
	return updated, nil
}

func (s *catalogService) DeactivateSubcategory(ctx context.Context, subcategoryID string) (domain.Subcategory, error) {
	sub, err := s.findSubcategory(ctx, subcategoryID)
	if err != nil {
		return domain.Subcategory{}, err
	}
	sub.IsActive = false
	sub.UpdatedAt = s.clock()
	updated, err := s.subcategories.Update(ctx, sub)
	if err != nil {
		return domain.Subcategory{}, translateRepoError(err, "subcategory")
	}
	return updated, nil
}

func (s *catalogService) findSubcategory(ctx context.Context, subcategoryID string) (domain.Subcategory, error) {
	subcategoryID = strings.TrimSpace(subcategoryID)
	if subcategoryID == "" {
		return domain.Subcategory{}, fmt.Errorf("%w: subcategory id is required", ErrInvalidInput)
	}
	sub, err := s.subcategories.FindByID(ctx, subcategoryID)
	if err != nil {
		return domain.Subcategory{}, translateRepoError(err, "subcategory")
	}
	return sub, nil
}

func (s *catalogService) requireActiveCategory(ctx context.Context, categoryID string) error {
	if categoryID == "" {
		return fmt.Errorf("%w: category reference is required", ErrInvalidInput)
	}
	category, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		if isRepoNotFound(err) {
			return fmt.Errorf("%w: category %s does not exist", ErrInvalidInput, categoryID)
		}
		return translateRepoError(err, "category")
	}
	if !category.IsActive {
		return fmt.Errorf("%w: category %s does not exist", ErrInvalidInput, categoryID)
	}
	return nil
}

// Items ----------------------------------------------------------------------

func (s *catalogService) CreateItem(ctx context.Context, cmd ItemCommand) (ItemView, error) {
	parent, err := domain.NewItemParent(cmd.CategoryID, cmd.SubcategoryID)
	if err != nil {
		return ItemView{}, err
	}
	pricing, err := domain.DecodePricing(cmd.Pricing)
	if err != nil {
		return ItemView{}, err
	}
	availability, err := parseAvailability(cmd.AvailableDays, cmd.TimeSlots)
	if err != nil {
		return ItemView{}, err
	}

	now := s.clock()
	item := domain.Item{
		ID:           s.newID(),
		Name:         textutil.CleanText(cmd.Name),
		Description:  textutil.CleanOptional(cmd.Description),
		Image:        trimOptional(cmd.Image),
		IsActive:     true,
		Parent:       parent,
		Pricing:      pricing,
		Availability: availability,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := item.Validate(); err != nil {
		return ItemView{}, err
	}

	view := ItemView{}
	if err := s.attachParent(ctx, item.Parent, &view, true); err != nil {
		return ItemView{}, err
	}
	stored, err := s.items.Insert(ctx, item)
	if err != nil {
		return ItemView{}, translateRepoError(err, "item")
	}
	view.Item = stored
	s.logger(ctx, "catalog.item_created", map[string]any{"itemID": stored.ID, "pricingType": string(pricing.Type())})
	return view, nil
}

func (s *catalogService) ListItems(ctx context.Context, filter ItemListQuery) (domain.Page[ItemView], error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return domain.Page[ItemView]{}, fmt.Errorf("%w: minPrice cannot exceed maxPrice", ErrInvalidInput)
	}
	page, err := s.items.List(ctx, repositories.ItemListFilter{
		CategoryID:    strings.TrimSpace(filter.CategoryID),
		SubcategoryID: strings.TrimSpace(filter.SubcategoryID),
		ActiveOnly:    filter.ActiveOnly,
		Search:        strings.TrimSpace(filter.Search),
		Options:       filter.Options.WithDefaults(),
	})
	if err != nil {
		return domain.Page[ItemView]{}, translateRepoError(err, "item")
	}

	parents := newParentCache(s)
	views := make([]ItemView, 0, len(page.Items))
	for _, item := range page.Items {
		view := ItemView{Item: item}
		if filter.MinPrice != nil || filter.MaxPrice != nil {
			price, ok := s.listingPrice(ctx, item)
			if !ok {
				continue
			}
			if filter.MinPrice != nil && price < *filter.MinPrice {
				continue
			}
			if filter.MaxPrice != nil && price > *filter.MaxPrice {
				continue
			}
			view.CalculatedPrice = float64Ptr(price)
		}
		if filter.TaxApplicable != nil {
			info, err := s.tax.Resolve(ctx, item)
			if err != nil || info.Applicable != *filter.TaxApplicable {
				continue
			}
		}
		parents.attach(ctx, item.Parent, &view)
		views = append(views, view)
	}

	return domain.Page[ItemView]{
		Items: views,
		Total: page.Total,
		Page:  page.Page,
		Limit: page.Limit,
	}, nil
}

// listingPrice quotes an item with no request parameters. A null base price counts as 0;
// a quote failure excludes the item from price-filtered listings.
func (s *catalogService) listingPrice(ctx context.Context, item domain.Item) (float64, bool) {
	quote, err := s.quotes.QuoteItem(ctx, item, domain.PriceParams{})
	if err != nil {
		return 0, false
	}
	if quote.BasePrice == nil {
		return 0, true
	}
	return *quote.BasePrice, true
}

func (s *catalogService) GetItem(ctx context.Context, itemID string) (ItemView, error) {
	item, err := s.findItem(ctx, itemID)
	if err != nil {
		return ItemView{}, err
	}
	if !item.IsActive {
		return ItemView{}, errItemNotFound
	}
	view := ItemView{Item: item}
	if err := s.attachParent(ctx, item.Parent, &view, false); err != nil {
		return ItemView{}, err
	}
	return view, nil
}

func (s *catalogService) UpdateItem(ctx context.Context, itemID string, patch ItemPatch) (ItemView, error) {
	item, err := s.findItem(ctx, itemID)
	if err != nil {
		return ItemView{}, err
	}
	parentChanged := false
	if patch.Name != nil {
		item.Name = textutil.CleanText(*patch.Name)
	}
	if patch.Description != nil {
		item.Description = textutil.CleanOptional(patch.Description)
	}
	if patch.Image != nil {
		item.Image = trimOptional(patch.Image)
	}
	if patch.CategoryID != nil || patch.SubcategoryID != nil {
		parent, err := domain.NewItemParent(derefString(patch.CategoryID), derefString(patch.SubcategoryID))
		if err != nil {
			return ItemView{}, err
		}
		parentChanged = parent != item.Parent
		item.Parent = parent
	}
	if patch.Pricing != nil {
		pricing, err := domain.DecodePricing(*patch.Pricing)
		if err != nil {
			return ItemView{}, err
		}
		item.Pricing = pricing
	}
	if patch.AvailableDays != nil || patch.TimeSlots != nil {
		days := weekdayNames(item.Availability.Days)
		if patch.AvailableDays != nil {
			days = *patch.AvailableDays
		}
		slots := slotInputs(item.Availability.Slots)
		if patch.TimeSlots != nil {
			slots = *patch.TimeSlots
		}
		availability, err := parseAvailability(days, slots)
		if err != nil {
			return ItemView{}, err
		}
		item.Availability = availability
	}
	if err := item.Validate(); err != nil {
		return ItemView{}, err
	}

	view := ItemView{}
	if err := s.attachParent(ctx, item.Parent, &view, parentChanged); err != nil {
		return ItemView{}, err
	}
	item.UpdatedAt = s.clock()
	updated, err := s.items.Update(ctx, item)
	if err != nil {
		return ItemView{}, translateRepoError(err, "item")
	}
	view.Item = updated
	return view, nil
}

func (s *catalogService) DeactivateItem(ctx context.Context, itemID string) (ItemView, error) {
	item, err := s.findItem(ctx, itemID)
	if err != nil {
		return ItemView{}, err
	}
	item.IsActive = false
	item.UpdatedAt = s.clock()
	updated, err := s.items.Update(ctx, item)
	if err != nil {
		return ItemView{}, translateRepoError(err, "item")
	}
	return ItemView{Item: updated}, nil
}

func (s *catalogService) findItem(ctx context.Context, itemID string) (domain.Item, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return domain.Item{}, fmt.Errorf("%w: item id is required", ErrInvalidInput)
	}
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return domain.Item{}, translateRepoError(err, "item")
	}
	return item, nil
}

// attachParent resolves the item's parent into the view. With strict set, a missing or
// inactive parent is an input error; otherwise the view is left without it.
func (s *catalogService) attachParent(ctx context.Context, parent domain.ItemParent, view *ItemView, strict bool) error {
	switch parent.Kind {
	case domain.ParentCategory:
		category, err := s.categories.FindByID(ctx, parent.ID)
		if err == nil && category.IsActive {
			view.Category = &category
			return nil
		}
		if err != nil && !isRepoNotFound(err) {
			return translateRepoError(err, "category")
		}
		if strict {
			return fmt.Errorf("%w: category %s does not exist", ErrInvalidInput, parent.ID)
		}
	case domain.ParentSubcategory:
		sub, err := s.subcategories.FindByID(ctx, parent.ID)
		if err == nil && sub.IsActive {
			view.Subcategory = &sub
			return nil
		}
		if err != nil && !isRepoNotFound(err) {
			return translateRepoError(err, "subcategory")
		}
		if strict {
			return fmt.Errorf("%w: subcategory %s does not exist", ErrInvalidInput, parent.ID)
		}
	}
	return nil
}

// parentCache resolves parents once per listing call.
type parentCache struct {
	svc           *catalogService
	categories    map[string]*domain.Category
	subcategories map[string]*domain.Subcategory
}

func newParentCache(svc *catalogService) *parentCache {
	return &parentCache{
		svc:           svc,
		categories:    map[string]*domain.Category{},
		subcategories: map[string]*domain.Subcategory{},
	}
}

func (c *parentCache) attach(ctx context.Context, parent domain.ItemParent, view *ItemView) {
	switch parent.Kind {
	case domain.ParentCategory:
		cached, ok := c.categories[parent.ID]
		if !ok {
			var resolved ItemView
			_ = c.svc.attachParent(ctx, parent, &resolved, false)
			cached = resolved.Category
			c.categories[parent.ID] = cached
		}
		view.Category = cached
	case domain.ParentSubcategory:
		cached, ok := c.subcategories[parent.ID]
		if !ok {
			var resolved ItemView
			_ = c.svc.attachParent(ctx, parent, &resolved, false)
			cached = resolved.Subcategory
			c.subcategories[parent.ID] = cached
		}
		view.Subcategory = cached
	}
}

// Add-ons --------------------------------------------------------------------

func (s *catalogService) CreateAddOn(ctx context.Context, cmd AddOnCommand) (AddOnView, error) {
	itemID := strings.TrimSpace(cmd.ItemID)
	if itemID == "" {
		return AddOnView{}, fmt.Errorf("%w: item reference is required", ErrInvalidInput)
	}
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		if isRepoNotFound(err) {
			return AddOnView{}, fmt.Errorf("%w: item %s does not exist", ErrInvalidInput, itemID)
		}
		return AddOnView{}, translateRepoError(err, "item")
	}
	if !item.IsActive {
		return AddOnView{}, fmt.Errorf("%w: item %s does not exist", ErrInvalidInput, itemID)
	}

	now := s.clock()
	addon := domain.AddOn{
		ID:          s.newID(),
		ItemID:      item.ID,
		Name:        textutil.CleanText(cmd.Name),
		Description: textutil.CleanOptional(cmd.Description),
		Price:       cmd.Price,
		IsMandatory: cmd.IsMandatory,
		Group:       textutil.CleanOptional(cmd.Group),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := addon.Validate(); err != nil {
		return AddOnView{}, err
	}
	stored, err := s.addons.Insert(ctx, addon)
	if err != nil {
		return AddOnView{}, translateRepoError(err, "addon")
	}
	ref := item.Ref()
	return AddOnView{AddOn: stored, Item: &ref}, nil
}

func (s *catalogService) ListAddOns(ctx context.Context, filter AddOnListQuery) (domain.Page[AddOnView], error) {
	page, err := s.addons.List(ctx, repositories.AddOnListFilter{
		ItemID:  strings.TrimSpace(filter.ItemID),
		Group:   strings.TrimSpace(filter.Group),
		Options: filter.Options.WithDefaults(),
	})
	if err != nil {
		return domain.Page[AddOnView]{}, translateRepoError(err, "addon")
	}
	refs := map[string]*domain.ItemRef{}
	views := make([]AddOnView, 0, len(page.Items))
	for _, addon := range page.Items {
		ref, ok := refs[addon.ItemID]
		if !ok {
			ref = s.itemRef(ctx, addon.ItemID)
			refs[addon.ItemID] = ref
		}
		views = append(views, AddOnView{AddOn: addon, Item: ref})
	}
	return domain.Page[AddOnView]{Items: views, Total: page.Total, Page: page.Page, Limit: page.Limit}, nil
}

func (s *catalogService) GetAddOn(ctx context.Context, addonID string) (AddOnView, error) {
	addon, err := s.findAddOn(ctx, addonID)
	if err != nil {
		return AddOnView{}, err
	}
	if !addon.IsActive {
		return AddOnView{}, fmt.Errorf("%w: addon not found", ErrNotFound)
	}
	return AddOnView{AddOn: addon, Item: s.itemRef(ctx, addon.ItemID)}, nil
}

func (s *catalogService) UpdateAddOn(ctx context.Context, addonID string, patch AddOnPatch) (AddOnView, error) {
	addon, err := s.findAddOn(ctx, addonID)
	if err != nil {
		return AddOnView{}, err
	}
	if patch.Name != nil {
		addon.Name = textutil.CleanText(*patch.Name)
	}
	if patch.Description != nil {
		addon.Description = textutil.CleanOptional(patch.Description)
	}
	if patch.Price != nil {
		addon.Price = *patch.Price
	}
	if patch.IsMandatory != nil {
		addon.IsMandatory = *patch.IsMandatory
	}
	if patch.Group != nil {
		addon.Group = textutil.CleanOptional(patch.Group)
	}
	if err := addon.Validate(); err != nil {
		return AddOnView{}, err
	}
	addon.UpdatedAt = s.clock()
	updated, err := s.addons.Update(ctx, addon)
	if err != nil {
		return AddOnView{}, translateRepoError(err, "addon")
	}
	return AddOnView{AddOn: updated, Item: s.itemRef(ctx, updated.ItemID)}, nil
}

func (s *catalogService) DeactivateAddOn(ctx context.Context, addonID string) (AddOnView, error) {
	addon, err := s.findAddOn(ctx, addonID)
	if err != nil {
		return AddOnView{}, err
	}
	addon.IsActive = false
	addon.UpdatedAt = s.clock()
	updated, err := s.addons.Update(ctx, addon)
	if err != nil {
		return AddOnView{}, translateRepoError(err, "addon")
	}
	return AddOnView{AddOn: updated}, nil
}

func (s *catalogService) findAddOn(ctx context.Context, addonID string) (domain.AddOn, error) {
	addonID = strings.TrimSpace(addonID)
	if addonID == "" {
		return domain.AddOn{}, fmt.Errorf("%w: addon id is required", ErrInvalidInput)
	}
	addon, err := s.addons.FindByID(ctx, addonID)
	if err != nil {
		return domain.AddOn{}, translateRepoError(err, "addon")
	}
	return addon, nil
}

func (s *catalogService) itemRef(ctx context.Context, itemID string) *domain.ItemRef {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil
	}
	ref := item.Ref()
	return &ref
}

// helpers ----------------------------------------------------------------------

func parseAvailability(days []string, slots []TimeSlotInput) (domain.Availability, error) {
	availability := domain.Availability{}
	seen := map[time.Weekday]struct{}{}
	for _, name := range days {
		day, err := domain.ParseWeekday(name)
		if err != nil {
			return domain.Availability{}, err
		}
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		availability.Days = append(availability.Days, day)
	}
	for _, input := range slots {
		start, err := domain.ParseClockTime(input.Start)
		if err != nil {
			return domain.Availability{}, err
		}
		end, err := domain.ParseClockTime(input.End)
		if err != nil {
			return domain.Availability{}, err
		}
		availability.Slots = append(availability.Slots, domain.TimeSlot{Start: start, End: end})
	}
	return availability, availability.Validate()
}

func weekdayNames(days []time.Weekday) []string {
	names := make([]string, 0, len(days))
	for _, day := range days {
		names = append(names, day.String())
	}
	return names
}

func slotInputs(slots []domain.TimeSlot) []TimeSlotInput {
	inputs := make([]TimeSlotInput, 0, len(slots))
	for _, slot := range slots {
		inputs = append(inputs, TimeSlotInput{Start: slot.Start.String(), End: slot.End.String()})
	}
	return inputs
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
