package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/menuslot/api/internal/platform/config"
	"github.com/menuslot/api/internal/platform/idempotency"
	"github.com/menuslot/api/internal/platform/redisx"
	"github.com/menuslot/api/internal/platform/tickets"
	"github.com/menuslot/api/internal/repositories"
	"github.com/menuslot/api/internal/repositories/cache"
	"github.com/menuslot/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Catalog      services.CatalogService
	Quotes       services.QuoteService
	Availability services.AvailabilityService
	Bookings     services.BookingService
	System       services.SystemService
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
	Idempotency  idempotency.Store
	Tickets      *tickets.Issuer

	redis *redis.Client
}

// Option customises container assembly.
type Option func(*options)

type options struct {
	redis       *redis.Client
	publisher   services.BookingEventPublisher
	idempotency idempotency.Store
	checks      []repositories.DependencyCheck
	build       services.BuildInfo
	logger      func(context.Context, string, map[string]any)
	clock       func() time.Time
}

// WithRedis enables the item read-through cache and the shared idempotency store. The
// container takes ownership of the client and closes it on Close.
func WithRedis(client *redis.Client) Option {
	return func(o *options) {
		o.redis = client
	}
}

// WithBookingPublisher forwards booking confirmations and cancellations to publisher.
func WithBookingPublisher(publisher services.BookingEventPublisher) Option {
	return func(o *options) {
		o.publisher = publisher
	}
}

// WithIdempotencyStore overrides the store chosen from the other dependencies.
func WithIdempotencyStore(store idempotency.Store) Option {
	return func(o *options) {
		o.idempotency = store
	}
}

// WithHealthChecks appends readiness probes to the ones derived from the registry.
func WithHealthChecks(checks ...repositories.DependencyCheck) Option {
	return func(o *options) {
		o.checks = append(o.checks, checks...)
	}
}

// WithBuildInfo sets the metadata reported by the health endpoints.
func WithBuildInfo(info services.BuildInfo) Option {
	return func(o *options) {
		o.build = info
	}
}

// WithLogger sets the structured event hook shared by services and the cache.
func WithLogger(logger func(context.Context, string, map[string]any)) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock injects a clock primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// NewContainer constructs the runtime dependencies. Production wiring passes a Firestore or
// Mongo registry, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, opts ...Option) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}
	o := options{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	svc, err := buildServices(reg, cfg, o)
	if err != nil {
		return nil, err
	}

	store := o.idempotency
	if store == nil {
		store, err = defaultIdempotencyStore(o.redis)
		if err != nil {
			return nil, err
		}
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
		Idempotency:  store,
		Tickets:      tickets.NewIssuer(cfg.Booking.TicketSigningSecret, cfg.Booking.Location),
		redis:        o.redis,
	}, nil
}

// Close releases resources such as repository clients and the Redis connection pool.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if c.Repositories != nil {
		if err := c.Repositories.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildServices(reg repositories.Registry, cfg config.Config, o options) (Services, error) {
	var svc Services

	items := reg.Items()
	if o.redis != nil && items != nil {
		cached, err := cache.NewItemRepository(items, o.redis,
			cache.WithTTL(cfg.Redis.ItemCacheTTL),
			cache.WithLogger(o.logger),
		)
		if err != nil {
			return Services{}, fmt.Errorf("build item cache: %w", err)
		}
		items = cached
	}

	loc := cfg.Booking.Location

	tax, err := services.NewTaxResolver(services.TaxResolverDeps{
		Categories:    reg.Categories(),
		Subcategories: reg.Subcategories(),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build tax resolver: %w", err)
	}

	engine := services.NewPricingEngine(services.PricingEngineDeps{
		Clock:    o.clock,
		Location: loc,
	})

	quotes, err := services.NewQuoteService(services.QuoteServiceDeps{
		Items:  items,
		Engine: engine,
		Tax:    tax,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build quote service: %w", err)
	}
	svc.Quotes = quotes

	catalog, err := services.NewCatalogService(services.CatalogServiceDeps{
		Categories:    reg.Categories(),
		Subcategories: reg.Subcategories(),
		Items:         items,
		AddOns:        reg.AddOns(),
		Quotes:        quotes,
		Tax:           tax,
		Clock:         o.clock,
		Logger:        o.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalog

	availability, err := services.NewAvailabilityService(services.AvailabilityServiceDeps{
		Items:    items,
		Bookings: reg.Bookings(),
		Clock:    o.clock,
		Location: loc,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build availability service: %w", err)
	}
	svc.Availability = availability

	bookings, err := services.NewBookingService(services.BookingServiceDeps{
		Items:     items,
		Bookings:  reg.Bookings(),
		Publisher: o.publisher,
		Clock:     o.clock,
		Location:  loc,
		Logger:    o.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build booking service: %w", err)
	}
	svc.Bookings = bookings

	healthRepo, err := repositories.NewDependencyHealthRepository(healthChecks(reg, cfg, o), repositories.WithDependencyClock(o.clock))
	if err != nil {
		return Services{}, fmt.Errorf("build health repository: %w", err)
	}
	system, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: healthRepo,
		Clock:            o.clock,
		Build:            o.build,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build system service: %w", err)
	}
	svc.System = system

	return svc, nil
}

// healthChecks probes the document store as a required dependency. Redis only degrades
// readiness since the cache and idempotency store fail open.
func healthChecks(reg repositories.Registry, cfg config.Config, o options) []repositories.DependencyCheck {
	storeName := cfg.Store.Driver
	if storeName == "" {
		storeName = config.StoreFirestore
	}
	checks := []repositories.DependencyCheck{{
		Name:    storeName,
		Timeout: 1500 * time.Millisecond,
		Check:   reg.Ping,
	}}
	if o.redis != nil {
		checks = append(checks, repositories.DependencyCheck{
			Name:     "redis",
			Timeout:  time.Second,
			Optional: true,
			Check:    redisx.HealthCheck(o.redis),
		})
	}
	return append(checks, o.checks...)
}

func defaultIdempotencyStore(client *redis.Client) (idempotency.Store, error) {
	if client == nil {
		return idempotency.NewMemoryStore(), nil
	}
	store, err := idempotency.NewRedisStore(client)
	if err != nil {
		return nil, fmt.Errorf("build idempotency store: %w", err)
	}
	return store, nil
}
