package di

import (
	"context"
	"fmt"

	"github.com/menuslot/api/internal/platform/config"
	pfirestore "github.com/menuslot/api/internal/platform/firestore"
	pmongo "github.com/menuslot/api/internal/platform/mongo"
	"github.com/menuslot/api/internal/repositories"
	firestoreRepo "github.com/menuslot/api/internal/repositories/firestore"
	mongoRepo "github.com/menuslot/api/internal/repositories/mongo"
)

// OpenRegistry builds the repository registry for the configured store driver. For the
// Firestore driver the provider is returned as well so other stores can share its client;
// it is nil for Mongo. The registry owns the provider.
func OpenRegistry(ctx context.Context, cfg config.Config) (repositories.Registry, *pfirestore.Provider, error) {
	switch cfg.Store.Driver {
	case config.StoreMongo:
		reg, err := mongoRepo.NewRegistry(ctx, pmongo.NewProvider(cfg.Mongo))
		if err != nil {
			return nil, nil, fmt.Errorf("open mongo registry: %w", err)
		}
		return reg, nil, nil
	case config.StoreFirestore, "":
		provider := pfirestore.NewProvider(cfg.Firestore)
		reg, err := firestoreRepo.NewRegistry(provider)
		if err != nil {
			return nil, nil, fmt.Errorf("open firestore registry: %w", err)
		}
		return reg, provider, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
