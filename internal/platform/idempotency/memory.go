package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps reservations in process. It backs local runs without Redis and the tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Reserve(_ context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error) {
	now = now.UTC()
	id := storageID(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[id]; ok && !record.expired(now) {
		return classify(record, fingerprint)
	}
	record := pending(key, fingerprint, now, effectiveTTL(ttl))
	s.records[id] = record
	return Reservation{Outcome: Acquired, Record: record}, nil
}

func (s *MemoryStore) SaveResponse(_ context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	now = now.UTC()
	id := storageID(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	switch {
	case !ok:
		record = Record{Key: key, Fingerprint: fingerprint}
	case record.Fingerprint != fingerprint:
		return ErrFingerprintMismatch
	}
	record.complete(resp, now, effectiveTTL(ttl))
	s.records[id] = record
	return nil
}

// Release forgets the reservation of fingerprint so a retry can run the handler again.
func (s *MemoryStore) Release(_ context.Context, key, fingerprint string) error {
	id := storageID(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[id]; ok && record.Fingerprint == fingerprint {
		delete(s.records, id)
	}
	return nil
}

// CleanupExpired deletes up to limit expired records; a non-positive limit removes all of them.
func (s *MemoryStore) CleanupExpired(_ context.Context, now time.Time, limit int) (int, error) {
	now = now.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, record := range s.records {
		if limit > 0 && removed >= limit {
			break
		}
		if record.expired(now) {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}
