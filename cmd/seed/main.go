package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/menuslot/api/internal/di"
	"github.com/menuslot/api/internal/platform/config"
	"github.com/menuslot/api/internal/platform/observability"
)

func main() {
	file := flag.String("file", "catalog.yaml", "path to the catalog fixture")
	dryRun := flag.Bool("dry-run", false, "parse and validate the fixture without writing")
	flag.Parse()

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
	logger := baseLogger.Named("seed")

	data, err := os.ReadFile(*file)
	if err != nil {
		logger.Fatal("failed to read fixture", zap.String("file", *file), zap.Error(err))
	}
	fixture, err := Parse(data)
	if err != nil {
		logger.Fatal("invalid fixture", zap.String("file", *file), zap.Error(err))
	}
	if *dryRun {
		logger.Info("fixture is valid",
			zap.String("restaurantID", fixture.RestaurantID),
			zap.Int("categories", len(fixture.Categories)),
		)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	reg, _, err := di.OpenRegistry(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	container, err := di.NewContainer(ctx, cfg, reg,
		di.WithLogger(observability.ServiceLogger(logger.Named("services"))),
	)
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

	summary, err := Apply(ctx, container.Services.Catalog, fixture)
	if err != nil {
		logger.Error("seed aborted", zap.Stringer("created", summary), zap.Error(err))
		return
	}
	logger.Info("seed complete", zap.Stringer("created", summary), zap.String("store", cfg.Store.Driver))
}
