package idempotency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = string(value.([]byte))
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.values, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestRedisStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	store, err := NewRedisStore(client)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	res, err := store.Reserve(ctx, "key|/book", "fp", fixedTime, time.Hour)
	if err != nil || res.Outcome != Acquired {
		t.Fatalf("expected new reservation, got %+v %v", res, err)
	}
	res, err = store.Reserve(ctx, "key|/book", "fp", fixedTime, time.Hour)
	if err != nil || res.Outcome != InFlight {
		t.Fatalf("expected pending reservation, got %+v %v", res, err)
	}
	if _, err := store.Reserve(ctx, "key|/book", "other", fixedTime, time.Hour); err != ErrFingerprintMismatch {
		t.Fatalf("expected fingerprint mismatch, got %v", err)
	}

	if err := store.SaveResponse(ctx, "key|/book", "fp", Response{Status: 201, Body: []byte(`{"id":"b"}`)}, fixedTime, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	res, err = store.Reserve(ctx, "key|/book", "fp", fixedTime, time.Hour)
	if err != nil || res.Outcome != Replay || res.Record.ResponseStatus != 201 {
		t.Fatalf("expected completed reservation, got %+v %v", res, err)
	}
	if string(res.Record.ResponseBody) != `{"id":"b"}` {
		t.Fatalf("unexpected stored body %q", res.Record.ResponseBody)
	}

	if err := store.Release(ctx, "key|/book", "other"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(client.values) != 1 {
		t.Fatalf("release with a foreign fingerprint must keep the record")
	}
	if err := store.Release(ctx, "key|/book", "fp"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(client.values) != 0 {
		t.Fatalf("expected record to be deleted")
	}
}
