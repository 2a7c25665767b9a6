package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/menuslot/api/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

type routerConfig struct {
	basePath    string
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers

	categories    RouteRegistrar
	subcategories RouteRegistrar
	items         RouteRegistrar
	bookings      RouteRegistrar
	addons        RouteRegistrar
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

const (
	defaultAPIPrefix  = "/api/v1"
	defaultTimeout    = 60 * time.Second
	errorNotFoundCode = "route_not_found"
)

// NewRouter constructs the chi router with shared middleware and the catalog route groups.
// Groups without a registrar answer 501.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		basePath: defaultAPIPrefix,
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Timeout(defaultTimeout),
		},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()

	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(errorNotFoundCode, fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(cfg.basePath, func(api chi.Router) {
		api.Get("/health", cfg.health.Status)

		mount := func(path string, name string, registrars ...RouteRegistrar) {
			api.Route(path, func(group chi.Router) {
				registered := false
				for _, registrar := range registrars {
					if registrar != nil {
						registrar(group)
						registered = true
					}
				}
				if !registered {
					registerNotImplemented(group, name)
				}
			})
		}

		mount("/categories", "categories", cfg.categories)
		mount("/subcategories", "subcategories", cfg.subcategories)
		// Booking routes live under /items next to the item routes.
		mount("/items", "items", cfg.items, cfg.bookings)
		mount("/addons", "addons", cfg.addons)
	})

	return r
}

// WithMiddlewares appends additional global middleware to the router.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithHealthHandlers overrides the handlers used for the health endpoints.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithCategoryRoutes configures the registrar responsible for category endpoints.
func WithCategoryRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.categories = reg
	}
}

// WithSubcategoryRoutes configures the registrar responsible for subcategory endpoints.
func WithSubcategoryRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.subcategories = reg
	}
}

// WithItemRoutes configures the registrar responsible for item, price and availability endpoints.
func WithItemRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.items = reg
	}
}

// WithBookingRoutes configures the registrar responsible for booking endpoints under /items.
func WithBookingRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.bookings = reg
	}
}

// WithAddOnRoutes configures the registrar responsible for add-on endpoints.
func WithAddOnRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.addons = reg
	}
}

func registerNotImplemented(r chi.Router, name string) {
	handler := func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("not_implemented", fmt.Sprintf("%s routes not implemented", name), http.StatusNotImplemented))
	}
	r.HandleFunc("/*", handler)
	r.HandleFunc("/", handler)
	r.NotFound(handler)
	r.MethodNotAllowed(handler)
}
