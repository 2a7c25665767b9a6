package idempotency

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	firestoreCollection = "idempotencyKeys"
	firestoreTxAttempts = 5
	defaultCleanupBatch = 100
)

// FirestoreOption customises FirestoreStore.
type FirestoreOption func(*FirestoreStore)

// WithCollection overrides the collection holding the records.
func WithCollection(name string) FirestoreOption {
	return func(s *FirestoreStore) {
		if name != "" {
			s.collection = name
		}
	}
}

// FirestoreStore keeps reservations in Firestore when Redis is not configured. Records
// live until CleanupExpired removes them.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

var _ Store = (*FirestoreStore)(nil)

func NewFirestoreStore(client *firestore.Client, opts ...FirestoreOption) *FirestoreStore {
	s := &FirestoreStore{client: client, collection: firestoreCollection}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *FirestoreStore) ref(key string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(storageID(key))
}

// current reads the record inside tx. A missing document yields ok=false.
func current(tx *firestore.Transaction, ref *firestore.DocumentRef) (Record, bool, error) {
	snap, err := tx.Get(ref)
	if status.Code(err) == codes.NotFound {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	var record Record
	if err := snap.DataTo(&record); err != nil {
		return Record{}, false, err
	}
	return record, true, nil
}

func (s *FirestoreStore) Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error) {
	now = now.UTC()
	ref := s.ref(key)

	var out Reservation
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		record, ok, err := current(tx, ref)
		if err != nil {
			return err
		}
		if ok && !record.expired(now) {
			out, err = classify(record, fingerprint)
			return err
		}
		record = pending(key, fingerprint, now, effectiveTTL(ttl))
		out = Reservation{Outcome: Acquired, Record: record}
		return tx.Set(ref, record)
	}, firestore.MaxAttempts(firestoreTxAttempts))
	return out, err
}

func (s *FirestoreStore) SaveResponse(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	ref := s.ref(key)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		record, ok, err := current(tx, ref)
		if err != nil {
			return err
		}
		if ok && record.Fingerprint != fingerprint {
			return ErrFingerprintMismatch
		}
		record.Key, record.Fingerprint = key, fingerprint
		record.complete(resp, now.UTC(), effectiveTTL(ttl))
		return tx.Set(ref, record)
	}, firestore.MaxAttempts(firestoreTxAttempts))
}

func (s *FirestoreStore) Release(ctx context.Context, key, fingerprint string) error {
	ref := s.ref(key)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		record, ok, err := current(tx, ref)
		if err != nil || !ok || record.Fingerprint != fingerprint {
			return err
		}
		return tx.Delete(ref)
	}, firestore.MaxAttempts(firestoreTxAttempts))
}

// CleanupExpired deletes one batch of expired records.
func (s *FirestoreStore) CleanupExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultCleanupBatch
	}
	snaps, err := s.client.Collection(s.collection).
		Where("expiresAt", "<=", now.UTC()).
		Limit(limit).
		Documents(ctx).
		GetAll()
	if err != nil || len(snaps) == 0 {
		return 0, err
	}
	batch := s.client.Batch()
	for _, snap := range snaps {
		batch.Delete(snap.Ref)
	}
	if _, err := batch.Commit(ctx); err != nil {
		return 0, err
	}
	return len(snaps), nil
}
