package app

import (
	"context"
	"fmt"

	"moodwave/internal/config"
	"moodwave/internal/logger"
	"moodwave/internal/metrics"
	"moodwave/internal/repository/db"
	"moodwave/internal/repository/file"
	"moodwave/internal/repository/postgres"
	"moodwave/internal/repository/resilient"
	"moodwave/internal/repository/sqlite"

	"github.com/sirupsen/logrus"
)

// OpenDatabase opens the configured backend, moves models to disk when
// MODEL_STORE=file, and puts the result behind a circuit breaker.
func OpenDatabase(cfg *config.AppConfig, m *metrics.Metrics) (db.Database, error) {
	var backend db.Database
	switch cfg.Database.Driver {
	case "postgres":
		pg, err := postgres.NewPostgresDB(cfg.Database)
		if err != nil {
			return nil, err
		}
		backend = pg
	case "sqlite":
		store, err := sqlite.NewStore(cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		backend = store
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	if cfg.Model.UsesFileStore() {
		models, err := file.NewModelStore(cfg.Model.Dir)
		if err != nil {
			backend.Close()
			return nil, err
		}
		backend = WithModelStore(backend, models)
	}

	logger.Log.WithFields(logrus.Fields{
		"driver":      cfg.Database.Driver,
		"model_store": cfg.Model.Store,
	}).Info("Database opened")

	return resilient.Wrap(backend, cfg.Database.Driver, cfg.Breaker, m), nil
}

// splitDatabase serves observations and training runs from one backend and models from another
type splitDatabase struct {
	db.Database
	models db.ModelStore
}

// WithModelStore returns base with its model operations redirected to models
func WithModelStore(base db.Database, models db.ModelStore) db.Database {
	return &splitDatabase{Database: base, models: models}
}

func (s *splitDatabase) SaveModel(ctx context.Context, m db.StoredModel) (*db.StoredModel, error) {
	return s.models.SaveModel(ctx, m)
}

func (s *splitDatabase) LoadModel(ctx context.Context, userID string) (*db.StoredModel, error) {
	return s.models.LoadModel(ctx, userID)
}

func (s *splitDatabase) DeleteModel(ctx context.Context, userID string) error {
	return s.models.DeleteModel(ctx, userID)
}
