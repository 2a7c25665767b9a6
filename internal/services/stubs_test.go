package services

import (
	"context"
	"sort"
	"strings"
	"time"

	domain "github.com/menuslot/api/internal/domain"
	"github.com/menuslot/api/internal/repositories"
)

type stubRepositoryError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e stubRepositoryError) Error() string       { return "stub repository error" }
func (e stubRepositoryError) IsNotFound() bool    { return e.notFound }
func (e stubRepositoryError) IsConflict() bool    { return e.conflict }
func (e stubRepositoryError) IsUnavailable() bool { return e.unavailable }

var errStubNotFound = stubRepositoryError{notFound: true}

type stubCategoryRepo struct {
	rows      map[string]domain.Category
	inserted  []domain.Category
	updated   []domain.Category
	listed    repositories.CategoryListFilter
	insertErr error
	findErr   error
}

func newStubCategoryRepo(rows ...domain.Category) *stubCategoryRepo {
	repo := &stubCategoryRepo{rows: map[string]domain.Category{}}
	for _, row := range rows {
		repo.rows[row.ID] = row
	}
	return repo
}

func (r *stubCategoryRepo) Insert(_ context.Context, c domain.Category) (domain.Category, error) {
	if r.insertErr != nil {
		return domain.Category{}, r.insertErr
	}
	r.inserted = append(r.inserted, c)
	r.rows[c.ID] = c
	return c, nil
}

func (r *stubCategoryRepo) Update(_ context.Context, c domain.Category) (domain.Category, error) {
	r.updated = append(r.updated, c)
	r.rows[c.ID] = c
	return c, nil
}

func (r *stubCategoryRepo) FindByID(_ context.Context, id string) (domain.Category, error) {
	if r.findErr != nil {
		return domain.Category{}, r.findErr
	}
	row, ok := r.rows[id]
	if !ok {
		return domain.Category{}, errStubNotFound
	}
	return row, nil
}

func (r *stubCategoryRepo) List(_ context.Context, filter repositories.CategoryListFilter) (domain.Page[domain.Category], error) {
	r.listed = filter
	var out []domain.Category
	for _, row := range r.rows {
		if row.IsActive && (filter.RestaurantID == "" || row.RestaurantID == filter.RestaurantID) {
			out = append(out, row)
		}
	}
	return domain.Page[domain.Category]{Items: out, Total: len(out), Page: filter.Options.Page, Limit: filter.Options.Limit}, nil
}

type stubSubcategoryRepo struct {
	rows     map[string]domain.Subcategory
	inserted []domain.Subcategory
	updated  []domain.Subcategory
	findErr  error
}

func newStubSubcategoryRepo(rows ...domain.Subcategory) *stubSubcategoryRepo {
	repo := &stubSubcategoryRepo{rows: map[string]domain.Subcategory{}}
	for _, row := range rows {
		repo.rows[row.ID] = row
	}
	return repo
}

func (r *stubSubcategoryRepo) Insert(_ context.Context, s domain.Subcategory) (domain.Subcategory, error) {
	r.inserted = append(r.inserted, s)
	r.rows[s.ID] = s
	return s, nil
}

func (r *stubSubcategoryRepo) Update(_ context.Context, s domain.Subcategory) (domain.Subcategory, error) {
	r.updated = append(r.updated, s)
	r.rows[s.ID] = s
	return s, nil
}

func (r *stubSubcategoryRepo) FindByID(_ context.Context, id string) (domain.Subcategory, error) {
	if r.findErr != nil {
		return domain.Subcategory{}, r.findErr
	}
	row, ok := r.rows[id]
	if !ok {
		return domain.Subcategory{}, errStubNotFound
	}
	return row, nil
}

func (r *stubSubcategoryRepo) List(_ context.Context, filter repositories.SubcategoryListFilter) (domain.Page[domain.Subcategory], error) {
	var out []domain.Subcategory
	for _, row := range r.rows {
		if row.IsActive && (filter.CategoryID == "" || row.CategoryID == filter.CategoryID) {
			out = append(out, row)
		}
	}
	return domain.Page[domain.Subcategory]{Items: out, Total: len(out), Page: filter.Options.Page, Limit: filter.Options.Limit}, nil
}

type stubItemRepo struct {
	rows     map[string]domain.Item
	inserted []domain.Item
	updated  []domain.Item
	listed   repositories.ItemListFilter
	findErr  error
}

func newStubItemRepo(rows ...domain.Item) *stubItemRepo {
	repo := &stubItemRepo{rows: map[string]domain.Item{}}
	for _, row := range rows {
		repo.rows[row.ID] = row
	}
	return repo
}

func (r *stubItemRepo) Insert(_ context.Context, item domain.Item) (domain.Item, error) {
	r.inserted = append(r.inserted, item)
	r.rows[item.ID] = item
	return item, nil
}

func (r *stubItemRepo) Update(_ context.Context, item domain.Item) (domain.Item, error) {
	r.updated = append(r.updated, item)
	r.rows[item.ID] = item
	return item, nil
}

func (r *stubItemRepo) FindByID(_ context.Context, id string) (domain.Item, error) {
	if r.findErr != nil {
		return domain.Item{}, r.findErr
	}
	row, ok := r.rows[id]
	if !ok {
		return domain.Item{}, errStubNotFound
	}
	return row, nil
}

func (r *stubItemRepo) List(_ context.Context, filter repositories.ItemListFilter) (domain.Page[domain.Item], error) {
	r.listed = filter
	var out []domain.Item
	for _, row := range r.rows {
		if filter.ActiveOnly && !row.IsActive {
			continue
		}
		if filter.CategoryID != "" && row.Parent.CategoryID() != filter.CategoryID {
			continue
		}
		if filter.SubcategoryID != "" && row.Parent.SubcategoryID() != filter.SubcategoryID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(row.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return domain.Page[domain.Item]{Items: out, Total: len(out), Page: filter.Options.Page, Limit: filter.Options.Limit}, nil
}

type stubAddOnRepo struct {
	rows     map[string]domain.AddOn
	inserted []domain.AddOn
	updated  []domain.AddOn
}

func newStubAddOnRepo(rows ...domain.AddOn) *stubAddOnRepo {
	repo := &stubAddOnRepo{rows: map[string]domain.AddOn{}}
	for _, row := range rows {
		repo.rows[row.ID] = row
	}
	return repo
}

func (r *stubAddOnRepo) Insert(_ context.Context, a domain.AddOn) (domain.AddOn, error) {
	r.inserted = append(r.inserted, a)
	r.rows[a.ID] = a
	return a, nil
}

func (r *stubAddOnRepo) Update(_ context.Context, a domain.AddOn) (domain.AddOn, error) {
	r.updated = append(r.updated, a)
	r.rows[a.ID] = a
	return a, nil
}

func (r *stubAddOnRepo) FindByID(_ context.Context, id string) (domain.AddOn, error) {
	row, ok := r.rows[id]
	if !ok {
		return domain.AddOn{}, errStubNotFound
	}
	return row, nil
}

func (r *stubAddOnRepo) List(_ context.Context, filter repositories.AddOnListFilter) (domain.Page[domain.AddOn], error) {
	var out []domain.AddOn
	for _, row := range r.rows {
		if !row.IsActive {
			continue
		}
		if filter.ItemID != "" && row.ItemID != filter.ItemID {
			continue
		}
		if filter.Group != "" && (row.Group == nil || *row.Group != filter.Group) {
			continue
		}
		out = append(out, row)
	}
	return domain.Page[domain.AddOn]{Items: out, Total: len(out), Page: filter.Options.Page, Limit: filter.Options.Limit}, nil
}

// stubBookingRepo keeps bookings in memory and enforces the overlap guarantee like a real store.
type stubBookingRepo struct {
	rows       map[string]domain.Booking
	created    []domain.Booking
	listFilter repositories.BookingListFilter
	createErr  error
	// hideOverlaps makes ListConfirmedOverlapping miss rows, simulating a concurrent writer
	// that committed after the pre-check.
	hideOverlaps bool
}

func newStubBookingRepo(rows ...domain.Booking) *stubBookingRepo {
	repo := &stubBookingRepo{rows: map[string]domain.Booking{}}
	for _, row := range rows {
		repo.rows[row.ID] = row
	}
	return repo
}

func (r *stubBookingRepo) CreateConfirmed(_ context.Context, b domain.Booking) (domain.Booking, error) {
	if r.createErr != nil {
		return domain.Booking{}, r.createErr
	}
	for _, existing := range r.rows {
		if existing.ItemID == b.ItemID && existing.Status == domain.BookingConfirmed && existing.Overlaps(b.StartTime, b.EndTime) {
			return domain.Booking{}, repositories.NewBookingError("bookings.create", repositories.BookingErrorOverlap, "", nil)
		}
	}
	r.created = append(r.created, b)
	r.rows[b.ID] = b
	return b, nil
}

func (r *stubBookingRepo) FindByID(_ context.Context, id string) (domain.Booking, error) {
	row, ok := r.rows[id]
	if !ok {
		return domain.Booking{}, repositories.NewBookingError("bookings.get", repositories.BookingErrorNotFound, "", nil)
	}
	return row, nil
}

func (r *stubBookingRepo) ListConfirmedOverlapping(_ context.Context, itemID string, start, end time.Time) ([]domain.Booking, error) {
	if r.hideOverlaps {
		return nil, nil
	}
	var out []domain.Booking
	for _, row := range r.rows {
		if row.ItemID == itemID && row.Status == domain.BookingConfirmed && row.StartTime.Before(end) && row.EndTime.After(start) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *stubBookingRepo) ListByItem(_ context.Context, filter repositories.BookingListFilter) ([]domain.Booking, error) {
	r.listFilter = filter
	var out []domain.Booking
	for _, row := range r.rows {
		if row.ItemID != filter.ItemID {
			continue
		}
		if filter.Status != nil && row.Status != *filter.Status {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *stubBookingRepo) Cancel(_ context.Context, id string, at time.Time) (domain.Booking, error) {
	row, ok := r.rows[id]
	if !ok {
		return domain.Booking{}, repositories.NewBookingError("bookings.cancel", repositories.BookingErrorNotFound, "", nil)
	}
	if row.Status == domain.BookingCancelled {
		return domain.Booking{}, repositories.NewBookingError("bookings.cancel", repositories.BookingErrorAlreadyCancelled, "", nil)
	}
	row.Status = domain.BookingCancelled
	row.UpdatedAt = at
	r.rows[id] = row
	return row, nil
}

type stubBookingPublisher struct {
	events []BookingEvent
	err    error
}

func (p *stubBookingPublisher) PublishBookingEvent(_ context.Context, event BookingEvent) error {
	p.events = append(p.events, event)
	return p.err
}

func boolPtr(v bool) *bool { return &v }

func strPtr(v string) *string { return &v }

// bookableItem is open on Mondays 09:00-12:00 and 14:00-17:00.
func bookableItem(id string) domain.Item {
	return domain.Item{
		ID:       id,
		Name:     "Private dining room",
		IsActive: true,
		Parent:   domain.ItemParent{Kind: domain.ParentCategory, ID: "cat-1"},
		Pricing:  domain.StaticPricing{Price: 100},
		Availability: domain.Availability{
			Days: []time.Weekday{time.Monday},
			Slots: []domain.TimeSlot{
				{Start: domain.MustClockTime("09:00"), End: domain.MustClockTime("12:00")},
				{Start: domain.MustClockTime("14:00"), End: domain.MustClockTime("17:00")},
			},
		},
	}
}

// monday is 2025-06-02, a Monday.
func monday(hh, mm int) time.Time {
	return time.Date(2025, time.June, 2, hh, mm, 0, 0, time.UTC)
}
