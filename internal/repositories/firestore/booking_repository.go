package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/menuslot/api/internal/domain"
	pfirestore "github.com/menuslot/api/internal/platform/firestore"
	"github.com/menuslot/api/internal/repositories"
)

const (
	bookingsCollection     = "bookings"
	bookingLocksCollection = "bookingLocks"
)

type bookingDocument struct {
	ItemID        string    `firestore:"itemId"`
	StartTime     time.Time `firestore:"startTime"`
	EndTime       time.Time `firestore:"endTime"`
	Status        string    `firestore:"status"`
	CustomerName  *string   `firestore:"customerName"`
	CustomerEmail *string   `firestore:"customerEmail"`
	CustomerPhone *string   `firestore:"customerPhone"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

// bookingLockDocument serialises booking writers of one item. Every confirmed write bumps
// Version, so two transactions that read the same lock cannot both commit.
type bookingLockDocument struct {
	Version   int64     `firestore:"version"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// BookingRepository stores bookings in the "bookings" collection.
type BookingRepository struct {
	provider *pfirestore.Provider
	bookings *pfirestore.Collection[bookingDocument]
	locks    *pfirestore.Collection[bookingLockDocument]
}

var _ repositories.BookingRepository = (*BookingRepository)(nil)

func NewBookingRepository(provider *pfirestore.Provider) (*BookingRepository, error) {
	if provider == nil {
		return nil, errors.New("booking repository requires firestore provider")
	}
	return &BookingRepository{
		provider: provider,
		bookings: pfirestore.NewCollection[bookingDocument](provider, bookingsCollection),
		locks:    pfirestore.NewCollection[bookingLockDocument](provider, bookingLocksCollection),
	}, nil
}

func (r *BookingRepository) CreateConfirmed(ctx context.Context, booking domain.Booking) (domain.Booking, error) {
	if strings.TrimSpace(booking.ID) == "" {
		return domain.Booking{}, errors.New("booking create: booking id is required")
	}
	if strings.TrimSpace(booking.ItemID) == "" {
		return domain.Booking{}, errors.New("booking create: item id is required")
	}
	booking.Status = domain.BookingConfirmed
	doc := newBookingDocument(booking)

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		lockRef, err := r.locks.Doc(ctx, booking.ItemID)
		if err != nil {
			return err
		}
		var lock bookingLockDocument
		snap, err := tx.Get(lockRef)
		switch {
		case err == nil:
			if err := snap.DataTo(&lock); err != nil {
				return fmt.Errorf("decode booking lock %s: %w", booking.ItemID, err)
			}
		case status.Code(err) != codes.NotFound:
			return err
		}

		coll, err := r.bookings.Ref(ctx)
		if err != nil {
			return err
		}
		candidates, err := tx.Documents(coll.
			Where("itemId", "==", booking.ItemID).
			Where("status", "==", string(domain.BookingConfirmed)).
			Where("startTime", "<", doc.EndTime)).GetAll()
		if err != nil {
			return err
		}
		for _, candidate := range candidates {
			existing, err := r.bookings.Decode(candidate)
			if err != nil {
				return err
			}
			if existing.Data.toDomain(existing.ID).Overlaps(doc.StartTime, doc.EndTime) {
				return repositories.NewBookingError("", repositories.BookingErrorOverlap,
					fmt.Sprintf("booking %s overlaps the requested interval", existing.ID), nil)
			}
		}

		lock.Version++
		lock.UpdatedAt = doc.UpdatedAt
		if err := tx.Set(lockRef, lock); err != nil {
			return err
		}
		bookingRef, err := r.bookings.Doc(ctx, booking.ID)
		if err != nil {
			return err
		}
		return tx.Create(bookingRef, doc)
	})
	if err != nil {
		return domain.Booking{}, wrapBookingError("bookings.create", err)
	}
	return doc.toDomain(booking.ID), nil
}

func (r *BookingRepository) FindByID(ctx context.Context, bookingID string) (domain.Booking, error) {
	doc, err := getDocument(ctx, r.bookings, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *BookingRepository) ListConfirmedOverlapping(ctx context.Context, itemID string, start, end time.Time) ([]domain.Booking, error) {
	docs, err := r.bookings.Find(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("itemId", "==", itemID).
			Where("status", "==", string(domain.BookingConfirmed)).
			Where("startTime", "<", end.UTC())
	})
	if err != nil {
		return nil, err
	}
	var out []domain.Booking
	for _, doc := range docs {
		booking := doc.Data.toDomain(doc.ID)
		if booking.Overlaps(start, end) {
			out = append(out, booking)
		}
	}
	return out, nil
}

func (r *BookingRepository) ListByItem(ctx context.Context, filter repositories.BookingListFilter) ([]domain.Booking, error) {
	docs, err := r.bookings.Find(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("itemId", "==", filter.ItemID)
		if filter.Status != nil {
			q = q.Where("status", "==", string(*filter.Status))
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Booking, 0, len(docs))
	for _, doc := range docs {
		booking := doc.Data.toDomain(doc.ID)
		if filter.StartFrom != nil && booking.StartTime.Before(*filter.StartFrom) {
			continue
		}
		if filter.StartTo != nil && booking.StartTime.After(*filter.StartTo) {
			continue
		}
		out = append(out, booking)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *BookingRepository) Cancel(ctx context.Context, bookingID string, at time.Time) (domain.Booking, error) {
	var result domain.Booking
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.bookings.Doc(ctx, bookingID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewBookingError("", repositories.BookingErrorNotFound, fmt.Sprintf("booking %s not found", bookingID), err)
			}
			return err
		}
		decoded, err := r.bookings.Decode(snap)
		if err != nil {
			return err
		}
		doc := decoded.Data
		if doc.Status == string(domain.BookingCancelled) {
			return repositories.NewBookingError("", repositories.BookingErrorAlreadyCancelled, fmt.Sprintf("booking %s is already cancelled", bookingID), nil)
		}
		doc.Status = string(domain.BookingCancelled)
		doc.UpdatedAt = at.UTC()
		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		result = doc.toDomain(bookingID)
		return nil
	})
	if err != nil {
		return domain.Booking{}, wrapBookingError("bookings.cancel", err)
	}
	return result, nil
}

func wrapBookingError(op string, err error) error {
	if err == nil {
		return nil
	}
	var bookingErr *repositories.BookingError
	if errors.As(err, &bookingErr) {
		if bookingErr.Op == "" {
			bookingErr.Op = op
		}
		return bookingErr
	}
	return pfirestore.WrapError(op, err)
}

func newBookingDocument(b domain.Booking) bookingDocument {
	return bookingDocument{
		ItemID:        b.ItemID,
		StartTime:     b.StartTime.UTC(),
		EndTime:       b.EndTime.UTC(),
		Status:        string(b.Status),
		CustomerName:  b.Customer.Name,
		CustomerEmail: b.Customer.Email,
		CustomerPhone: b.Customer.Phone,
		CreatedAt:     b.CreatedAt.UTC(),
		UpdatedAt:     b.UpdatedAt.UTC(),
	}
}

func (d bookingDocument) toDomain(id string) domain.Booking {
	return domain.Booking{
		ID:        id,
		ItemID:    d.ItemID,
		StartTime: d.StartTime.UTC(),
		EndTime:   d.EndTime.UTC(),
		Status:    domain.BookingStatus(d.Status),
		Customer: domain.Customer{
			Name:  d.CustomerName,
			Email: d.CustomerEmail,
			Phone: d.CustomerPhone,
		},
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}
