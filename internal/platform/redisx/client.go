// Package redisx builds the shared Redis client used by the item cache, the idempotency
// store and the readiness probe.
package redisx

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/menuslot/api/internal/platform/config"
)

const (
	defaultDialTimeout = 5 * time.Second
	defaultIOTimeout   = 2 * time.Second
)

// NewClient returns a client for cfg. It does not dial; use Ping to verify connectivity.
func NewClient(cfg config.RedisConfig) (*redis.Client, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redisx: address is required")
	}
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultIOTimeout,
		WriteTimeout: defaultIOTimeout,
	}), nil
}

// Pinger is satisfied by *redis.Client.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// HealthCheck adapts a Redis client to a readiness probe.
func HealthCheck(client Pinger) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
