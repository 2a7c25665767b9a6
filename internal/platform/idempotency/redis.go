package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "menuslot:idempotency:"

// RedisClient is the subset of *redis.Client used by RedisStore.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps reservations in Redis so replicas share them. SETNX makes the first
// reservation atomic and key expiry replaces cleanup.
type RedisStore struct {
	client RedisClient
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client RedisClient) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("idempotency: redis client is required")
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error) {
	ttl = effectiveTTL(ttl)
	id := redisKeyPrefix + storageID(key)

	record := pending(key, fingerprint, now.UTC(), ttl)
	payload, err := json.Marshal(record)
	if err != nil {
		return Reservation{}, fmt.Errorf("idempotency: encode record: %w", err)
	}
	created, err := s.client.SetNX(ctx, id, payload, ttl).Result()
	if err != nil {
		return Reservation{}, err
	}
	if created {
		return Reservation{Outcome: Acquired, Record: record}, nil
	}

	existing, found, err := s.load(ctx, id)
	switch {
	case err != nil:
		return Reservation{}, err
	case !found:
		// expired between SETNX and GET
		return Reservation{Outcome: InFlight}, nil
	}
	return classify(existing, fingerprint)
}

func (s *RedisStore) SaveResponse(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	ttl = effectiveTTL(ttl)
	id := redisKeyPrefix + storageID(key)

	record, found, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if found && record.Fingerprint != fingerprint {
		return ErrFingerprintMismatch
	}
	record.Key, record.Fingerprint = key, fingerprint
	record.complete(resp, now.UTC(), ttl)

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("idempotency: encode record: %w", err)
	}
	return s.client.Set(ctx, id, payload, ttl).Err()
}

func (s *RedisStore) Release(ctx context.Context, key, fingerprint string) error {
	id := redisKeyPrefix + storageID(key)
	existing, found, err := s.load(ctx, id)
	if err != nil || !found || existing.Fingerprint != fingerprint {
		return err
	}
	return s.client.Del(ctx, id).Err()
}

// CleanupExpired is a no-op; Redis expires keys itself.
func (s *RedisStore) CleanupExpired(context.Context, time.Time, int) (int, error) {
	return 0, nil
}

func (s *RedisStore) load(ctx context.Context, id string) (Record, bool, error) {
	raw, err := s.client.Get(ctx, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return Record{}, false, fmt.Errorf("idempotency: decode record: %w", err)
	}
	return record, true, nil
}
