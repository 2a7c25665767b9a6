package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/menuslot/api/internal/di"
	"github.com/menuslot/api/internal/handlers"
	"github.com/menuslot/api/internal/platform/config"
	"github.com/menuslot/api/internal/platform/events"
	"github.com/menuslot/api/internal/platform/idempotency"
	"github.com/menuslot/api/internal/platform/observability"
	"github.com/menuslot/api/internal/platform/ratelimit"
	"github.com/menuslot/api/internal/platform/redisx"
	"github.com/menuslot/api/internal/platform/secrets"
	"github.com/menuslot/api/internal/services"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	envValues, err := config.EnvironmentValues()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read environment values: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(envValues["LOG_LEVEL"], envValues["API_ENVIRONMENT"])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	resolver, err := secrets.NewResolver(ctx,
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithProject(secretProject(envValues)),
	)
	if err != nil {
		logger.Fatal("failed to initialise secret resolver", zap.Error(err))
	}
	defer func() {
		if err := resolver.Close(); err != nil {
			logger.Warn("secret resolver close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(resolver),
		config.WithRequiredSecrets(requiredSecretNames(envValues)...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	serviceLogger := observability.ServiceLogger(logger.Named("services"))

	reg, firestoreProvider, err := di.OpenRegistry(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}

	opts := []di.Option{
		di.WithBuildInfo(buildInfo(cfg, startedAt)),
		di.WithLogger(serviceLogger),
	}

	if cfg.Redis.Enabled() {
		client, err := redisx.NewClient(cfg.Redis)
		if err != nil {
			logger.Fatal("failed to initialise redis client", zap.Error(err))
		}
		opts = append(opts, di.WithRedis(client))
	}

	var firestoreIdempotency *idempotency.FirestoreStore
	if !cfg.Redis.Enabled() && firestoreProvider != nil {
		client, err := firestoreProvider.Client(ctx)
		if err != nil {
			logger.Fatal("failed to initialise firestore client", zap.Error(err))
		}
		firestoreIdempotency = idempotency.NewFirestoreStore(client)
		opts = append(opts, di.WithIdempotencyStore(firestoreIdempotency))
	}

	pubsubClient, publisher, err := newBookingPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialise booking publisher", zap.Error(err))
	}
	if publisher != nil {
		opts = append(opts, di.WithBookingPublisher(publisher))
		logger.Info("booking events enabled", zap.String("topic", cfg.PubSub.BookingTopic))
	}

	container, err := di.NewContainer(ctx, cfg, reg, opts...)
	if err != nil {
		logger.Fatal("failed to build dependency container", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("container close error", zap.Error(err))
		}
	}()
	if pubsubClient != nil {
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
	}

	idempotencyMiddleware := idempotency.Middleware(
		container.Idempotency,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.ServiceLogger(logger.Named("idempotency"))),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	if firestoreIdempotency != nil && cfg.Idempotency.CleanupInterval > 0 {
		cleanupWG.Add(1)
		go func() {
			defer cleanupWG.Done()
			runIdempotencyCleanup(cleanupCtx, logger.Named("idempotency"), firestoreIdempotency, cfg.Idempotency)
		}()
	}

	svc := container.Services
	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			handlers.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.Idempotency.Header),
			observability.TraceMiddleware(cfg.Firestore.ProjectID),
			observability.InjectLoggerMiddleware(logger),
			observability.RequestLoggerMiddleware(cfg.Idempotency.Header),
			observability.RecoveryMiddleware(logger),
			handlers.RateLimitMiddleware(ratelimit.New(cfg.RateLimits.PerMinute, cfg.RateLimits.Burst)),
		),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(
			handlers.WithHealthSystemService(svc.System),
			handlers.WithHealthBuildInfo(buildInfo(cfg, startedAt)),
		)),
		handlers.WithCategoryRoutes(handlers.NewCategoryHandlers(svc.Catalog).Routes),
		handlers.WithSubcategoryRoutes(handlers.NewSubcategoryHandlers(svc.Catalog).Routes),
		handlers.WithItemRoutes(handlers.NewItemHandlers(svc.Catalog, svc.Quotes).Routes),
		handlers.WithBookingRoutes(handlers.NewBookingHandlers(svc.Bookings, svc.Availability,
			handlers.WithBookingLocation(cfg.Booking.Location),
			handlers.WithTicketIssuer(container.Tickets),
			handlers.WithBookMiddlewares(idempotencyMiddleware),
		).Routes),
		handlers.WithAddOnRoutes(handlers.NewAddOnHandlers(svc.Catalog).Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr), zap.String("store", cfg.Store.Driver))
	go func() {
		serverLogger.Info("menuslot api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newBookingPublisher(ctx context.Context, cfg config.Config) (*pubsub.Client, services.BookingEventPublisher, error) {
	topicName := strings.TrimSpace(cfg.PubSub.BookingTopic)
	if topicName == "" {
		return nil, nil, nil
	}
	project := strings.TrimSpace(cfg.PubSub.ProjectID)
	if project == "" {
		project = cfg.Firestore.ProjectID
	}
	client, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub client: %w", err)
	}
	topic := client.Topic(topicName)
	topic.EnableMessageOrdering = true
	publisher, err := events.NewPubSubBookingPublisher(topic)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return client, publisher, nil
}

func runIdempotencyCleanup(ctx context.Context, logger *zap.Logger, store *idempotency.FirestoreStore, cfg config.IdempotencyConfig) {
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, time.Minute)
			removed, err := store.CleanupExpired(runCtx, time.Now().UTC(), cfg.CleanupBatchSize)
			cancel()
			if err != nil {
				logger.Error("idempotency cleanup error", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("idempotency cleanup removed records", zap.Int("count", removed))
			}
		case <-ctx.Done():
			return
		}
	}
}

func buildInfo(cfg config.Config, started time.Time) services.BuildInfo {
	commit := strings.TrimSpace(cfg.Build.CommitSHA)
	if commit == "" {
		commit = "unknown"
	}
	return services.BuildInfo{
		Version:     cfg.Build.Version,
		CommitSHA:   commit,
		Environment: cfg.Environment,
		StartedAt:   started,
	}
}

func secretProject(env map[string]string) string {
	for _, key := range []string{"API_SECRET_PROJECT_ID", "API_FIRESTORE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"} {
		if value := strings.TrimSpace(env[key]); value != "" {
			return value
		}
	}
	return ""
}

// requiredSecretNames makes the ticket signing secret mandatory outside local and test environments.
func requiredSecretNames(env map[string]string) []string {
	switch strings.ToLower(strings.TrimSpace(env["API_ENVIRONMENT"])) {
	case "", "local", "dev", "development", "test":
		return nil
	}
	return []string{"Booking.TicketSigningSecret"}
}
