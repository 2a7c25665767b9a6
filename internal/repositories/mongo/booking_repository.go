package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/menuslot/api/internal/domain"
	pmongo "github.com/menuslot/api/internal/platform/mongo"
	"github.com/menuslot/api/internal/repositories"
)

const (
	bookingsCollection     = "bookings"
	bookingLocksCollection = "bookingLocks"
)

type bookingDocument struct {
	ID            string    `bson:"_id"`
	ItemID        string    `bson:"itemId"`
	StartTime     time.Time `bson:"startTime"`
	EndTime       time.Time `bson:"endTime"`
	Status        string    `bson:"status"`
	CustomerName  *string   `bson:"customerName"`
	CustomerEmail *string   `bson:"customerEmail"`
	CustomerPhone *string   `bson:"customerPhone"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

// BookingRepository stores bookings. Confirmed writes for one item are serialised by
// bumping the item's bookingLocks document inside the transaction.
type BookingRepository struct {
	provider *pmongo.Provider
	bookings *mongo.Collection
	locks    *mongo.Collection
}

var _ repositories.BookingRepository = (*BookingRepository)(nil)

func NewBookingRepository(provider *pmongo.Provider, bookings, locks *mongo.Collection) (*BookingRepository, error) {
	if provider == nil || bookings == nil || locks == nil {
		return nil, errors.New("booking repository requires mongo provider and collections")
	}
	return &BookingRepository{provider: provider, bookings: bookings, locks: locks}, nil
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

	err := r.provider.RunTransaction(ctx, func(sc mongo.SessionContext) error {
		_, err := r.locks.UpdateOne(sc,
			bson.M{"_id": doc.ItemID},
			bson.M{"$inc": bson.M{"version": 1}, "$set": bson.M{"updatedAt": doc.UpdatedAt}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return err
		}

		var existing bookingDocument
		err = r.bookings.FindOne(sc, overlapFilter(doc.ItemID, doc.StartTime, doc.EndTime)).Decode(&existing)
		switch {
		case err == nil:
			return repositories.NewBookingError("", repositories.BookingErrorOverlap,
				fmt.Sprintf("booking %s overlaps the requested interval", existing.ID), nil)
		case !errors.Is(err, mongo.ErrNoDocuments):
			return err
		}

		_, err = r.bookings.InsertOne(sc, doc)
		return err
	})
	if err != nil {
		return domain.Booking{}, wrapBookingError("bookings.create", err)
	}
	return doc.toDomain(), nil
}

func (r *BookingRepository) FindByID(ctx context.Context, bookingID string) (domain.Booking, error) {
	doc, err := findOne[bookingDocument](ctx, r.bookings, "bookings.find", bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	return doc.toDomain(), nil
}

func (r *BookingRepository) ListConfirmedOverlapping(ctx context.Context, itemID string, start, end time.Time) ([]domain.Booking, error) {
	return r.find(ctx, "bookings.overlapping", overlapFilter(itemID, start.UTC(), end.UTC()))
}

func (r *BookingRepository) ListByItem(ctx context.Context, filter repositories.BookingListFilter) ([]domain.Booking, error) {
	query := bson.M{"itemId": filter.ItemID}
	if filter.Status != nil {
		query["status"] = string(*filter.Status)
	}
	bounds := bson.M{}
	if filter.StartFrom != nil {
		bounds["$gte"] = filter.StartFrom.UTC()
	}
	if filter.StartTo != nil {
		bounds["$lte"] = filter.StartTo.UTC()
	}
	if len(bounds) > 0 {
		query["startTime"] = bounds
	}
	return r.find(ctx, "bookings.list", query)
}

func (r *BookingRepository) Cancel(ctx context.Context, bookingID string, at time.Time) (domain.Booking, error) {
	var result domain.Booking
	err := r.provider.RunTransaction(ctx, func(sc mongo.SessionContext) error {
		var doc bookingDocument
		if err := r.bookings.FindOne(sc, bson.M{"_id": bookingID}).Decode(&doc); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return repositories.NewBookingError("", repositories.BookingErrorNotFound, fmt.Sprintf("booking %s not found", bookingID), err)
			}
			return err
		}
		if doc.Status == string(domain.BookingCancelled) {
			return repositories.NewBookingError("", repositories.BookingErrorAlreadyCancelled, fmt.Sprintf("booking %s is already cancelled", bookingID), nil)
		}
		doc.Status = string(domain.BookingCancelled)
		doc.UpdatedAt = at.UTC()
		if _, err := r.bookings.UpdateOne(sc,
			bson.M{"_id": bookingID},
			bson.M{"$set": bson.M{"status": doc.Status, "updatedAt": doc.UpdatedAt}},
		); err != nil {
			return err
		}
		result = doc.toDomain()
		return nil
	})
	if err != nil {
		return domain.Booking{}, wrapBookingError("bookings.cancel", err)
	}
	return result, nil
}

func (r *BookingRepository) find(ctx context.Context, op string, query bson.M) ([]domain.Booking, error) {
	cursor, err := r.bookings.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}}))
	if err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	defer cursor.Close(ctx)

	var docs []bookingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	out := make([]domain.Booking, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toDomain())
	}
	return out, nil
}

// overlapFilter matches confirmed bookings intersecting [start, end).
func overlapFilter(itemID string, start, end time.Time) bson.M {
	return bson.M{
		"itemId":    itemID,
		"status":    string(domain.BookingConfirmed),
		"startTime": bson.M{"$lt": end},
		"endTime":   bson.M{"$gt": start},
	}
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
	return pmongo.WrapError(op, err)
}

func newBookingDocument(b domain.Booking) bookingDocument {
	return bookingDocument{
		ID:            b.ID,
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

func (d bookingDocument) toDomain() domain.Booking {
	return domain.Booking{
		ID:        d.ID,
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
