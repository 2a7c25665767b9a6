// Package cache decorates repositories with a Redis read-through cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domain "github.com/menuslot/api/internal/domain"
	"github.com/menuslot/api/internal/repositories"
)

const (
	defaultTTL = 5 * time.Minute
	keyPrefix  = "menuslot:item:"
)

// Client is the subset of *redis.Client the cache relies on.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// ItemRepository serves FindByID from Redis and refreshes the entry on every write.
// Listings always go to the underlying store. Cache failures are reported through the
// logger hook and never fail the call.
type ItemRepository struct {
	next   repositories.ItemRepository
	client Client
	ttl    time.Duration
	logger func(ctx context.Context, event string, fields map[string]any)
}

var _ repositories.ItemRepository = (*ItemRepository)(nil)

// Option customises the cache decorator.
type Option func(*ItemRepository)

// WithTTL overrides how long cached items live.
func WithTTL(ttl time.Duration) Option {
	return func(r *ItemRepository) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithLogger sets the hook used to report cache errors.
func WithLogger(logger func(context.Context, string, map[string]any)) Option {
	return func(r *ItemRepository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewItemRepository(next repositories.ItemRepository, client Client, opts ...Option) (*ItemRepository, error) {
	if next == nil {
		return nil, errors.New("item cache: underlying repository is required")
	}
	if client == nil {
		return nil, errors.New("item cache: redis client is required")
	}
	r := &ItemRepository{
		next:   next,
		client: client,
		ttl:    defaultTTL,
		logger: func(context.Context, string, map[string]any) {},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

func (r *ItemRepository) Insert(ctx context.Context, item domain.Item) (domain.Item, error) {
	stored, err := r.next.Insert(ctx, item)
	if err != nil {
		return domain.Item{}, err
	}
	r.store(ctx, stored)
	return stored, nil
}

func (r *ItemRepository) Update(ctx context.Context, item domain.Item) (domain.Item, error) {
	stored, err := r.next.Update(ctx, item)
	if err != nil {
		r.evict(ctx, item.ID)
		return domain.Item{}, err
	}
	r.store(ctx, stored)
	return stored, nil
}

func (r *ItemRepository) FindByID(ctx context.Context, itemID string) (domain.Item, error) {
	raw, err := r.client.Get(ctx, keyPrefix+itemID).Bytes()
	switch {
	case err == nil:
		item, decodeErr := decodeItem(raw)
		if decodeErr == nil {
			return item, nil
		}
		r.logger(ctx, "item_cache.decode_failed", map[string]any{"itemID": itemID, "error": decodeErr.Error()})
		r.evict(ctx, itemID)
	case !errors.Is(err, redis.Nil):
		r.logger(ctx, "item_cache.read_failed", map[string]any{"itemID": itemID, "error": err.Error()})
	}

	item, err := r.next.FindByID(ctx, itemID)
	if err != nil {
		return domain.Item{}, err
	}
	r.store(ctx, item)
	return item, nil
}

func (r *ItemRepository) List(ctx context.Context, filter repositories.ItemListFilter) (domain.Page[domain.Item], error) {
	return r.next.List(ctx, filter)
}

func (r *ItemRepository) store(ctx context.Context, item domain.Item) {
	payload, err := encodeItem(item)
	if err != nil {
		r.logger(ctx, "item_cache.encode_failed", map[string]any{"itemID": item.ID, "error": err.Error()})
		return
	}
	if err := r.client.Set(ctx, keyPrefix+item.ID, payload, r.ttl).Err(); err != nil {
		r.logger(ctx, "item_cache.write_failed", map[string]any{"itemID": item.ID, "error": err.Error()})
	}
}

func (r *ItemRepository) evict(ctx context.Context, itemID string) {
	if err := r.client.Del(ctx, keyPrefix+itemID).Err(); err != nil {
		r.logger(ctx, "item_cache.evict_failed", map[string]any{"itemID": itemID, "error": err.Error()})
	}
}

type cachedItem struct {
	ID            string                          `json:"id"`
	Name          string                          `json:"name"`
	Description   *string                         `json:"description,omitempty"`
	Image         *string                         `json:"image,omitempty"`
	IsActive      bool                            `json:"isActive"`
	CategoryID    string                          `json:"categoryId,omitempty"`
	SubcategoryID string                          `json:"subcategoryId,omitempty"`
	Pricing       domain.PricingDocument          `json:"pricing"`
	AvailableDays []string                        `json:"availableDays,omitempty"`
	TimeSlots     []repositories.TimeSlotDocument `json:"timeSlots,omitempty"`
	CreatedAt     time.Time                       `json:"createdAt"`
	UpdatedAt     time.Time                       `json:"updatedAt"`
}

func encodeItem(item domain.Item) ([]byte, error) {
	days, slots := repositories.EncodeAvailability(item.Availability)
	return json.Marshal(cachedItem{
		ID:            item.ID,
		Name:          item.Name,
		Description:   item.Description,
		Image:         item.Image,
		IsActive:      item.IsActive,
		CategoryID:    item.Parent.CategoryID(),
		SubcategoryID: item.Parent.SubcategoryID(),
		Pricing:       domain.EncodePricing(item.Pricing),
		AvailableDays: days,
		TimeSlots:     slots,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	})
}

func decodeItem(raw []byte) (domain.Item, error) {
	var cached cachedItem
	if err := json.Unmarshal(raw, &cached); err != nil {
		return domain.Item{}, fmt.Errorf("unmarshal cached item: %w", err)
	}
	parent, err := repositories.DecodeItemParent(cached.CategoryID, cached.SubcategoryID)
	if err != nil {
		return domain.Item{}, err
	}
	pricing, err := domain.DecodePricing(cached.Pricing)
	if err != nil {
		return domain.Item{}, err
	}
	availability, err := repositories.DecodeAvailability(cached.AvailableDays, cached.TimeSlots)
	if err != nil {
		return domain.Item{}, err
	}
	return domain.Item{
		ID:           cached.ID,
		Name:         cached.Name,
		Description:  cached.Description,
		Image:        cached.Image,
		IsActive:     cached.IsActive,
		Parent:       parent,
		Pricing:      pricing,
		Availability: availability,
		CreatedAt:    cached.CreatedAt.UTC(),
		UpdatedAt:    cached.UpdatedAt.UTC(),
	}, nil
}
