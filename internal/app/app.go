// Package app wires configuration, logging, storage and services for the
// binaries under cmd/.
package app

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/storage"
)

// LoadConfig reads an optional .env file, loads the configuration and
// configures the global logger from it.
func LoadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to read .env")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	return cfg, nil
}

// OpenDatabase connects and brings the schema up to date.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(db, cfg.Database.MigrationsDir); err != nil {
		return nil, err
	}
	return db, nil
}

// NewStorage returns the image storage selected by cfg.Storage.Driver.
func NewStorage(ctx context.Context, cfg config.StorageConfig) (storage.ImageStorage, error) {
	switch cfg.Driver {
	case "s3":
		s3cfg, err := config.NewS3Config(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return storage.NewS3Storage(s3cfg), nil
	case "local":
		return storage.NewLocalStorage(cfg.MediaRoot, cfg.MediaURL), nil
	default:
		return nil, errors.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// NewServices builds the domain services shared by the HTTP handlers.
func NewServices(cfg *config.Config, db *gorm.DB, store storage.ImageStorage) api.Services {
	return api.Services{
		Auth:       service.NewAuthService(db, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Users:      service.NewUserService(db, store),
		Recipes:    service.NewRecipeService(db, store),
		Relations:  service.NewRelationService(db),
		Shopping:   service.NewShoppingListService(db),
		ShortLinks: service.NewShortLinkService(db),
		Catalog:    service.NewCatalogService(db),
	}
}
