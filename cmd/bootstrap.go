package cmd

import (
	"fmt"

	"manhole-tracker/core/config"
	"manhole-tracker/core/database"
	"manhole-tracker/core/dataset"
	"manhole-tracker/core/fetch"
	"manhole-tracker/core/geocode"
	"manhole-tracker/core/logger"
	"manhole-tracker/core/storage"
	"manhole-tracker/feature/gmanhole"
	"manhole-tracker/feature/pokefuta"
	"manhole-tracker/feature/tracker"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// setup loads the configuration and builds the logger shared by every command.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logg, nil
}

// connectHistory opens the optional run history. Failures are logged and leave
// the history disabled.
func connectHistory(cfg *config.Config, logg *zap.Logger) (*gorm.DB, *tracker.RunStore) {
	if !cfg.Database.Enabled {
		return nil, nil
	}
	db, err := database.Connect(cfg.Database)
	if err != nil {
		logg.Warn("Optional database connection failed", zap.Error(err))
		return nil, nil
	}
	runs := tracker.NewRunStore(db)
	if err := runs.Migrate(); err != nil {
		logg.Warn("Failed to migrate run history", zap.Error(err))
		return db, nil
	}
	logg.Info("Run history enabled", zap.String("driver", cfg.Database.Driver))
	return db, runs
}

// connectStorage creates the object storage client when an object mirror is
// configured.
func connectStorage(cfg *config.Config, logg *zap.Logger) storage.Client {
	if cfg.Dataset.MirrorObject == "" {
		return nil
	}
	client, err := storage.NewClient(cfg.Storage)
	if err != nil {
		logg.Warn("Failed to create storage client, object mirror disabled", zap.Error(err))
		return nil
	}
	return client
}

// newTrackerService wires sources, fetcher, enrichment and mirrors from cfg.
func newTrackerService(cfg *config.Config, logg *zap.Logger, runs *tracker.RunStore, store storage.Client) (*tracker.Service, error) {
	format, err := dataset.ParseFormat(cfg.Dataset.Format)
	if err != nil {
		return nil, err
	}

	opts := []tracker.Option{
		tracker.WithSource(pokefuta.NewSource(cfg.Sources.Pokefuta)),
		tracker.WithSource(gmanhole.NewSource(cfg.Sources.Gmanhole)),
	}

	if cfg.Geocode.Enabled {
		provider, err := geocode.NewProvider(cfg.Geocode, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create geocode provider: %w", err)
		}
		cache := geocode.Load(cfg.Geocode.CachePath, logg)
		resolver := geocode.NewResolver(cache, provider, cfg.Geocode.Sleep(), fetch.RealSleeper{}, logg)
		opts = append(opts, tracker.WithEnricher(geocode.NewEnricher(resolver, logg), cache))
		logg.Info("Geocoding enabled",
			zap.String("provider", provider.Name()),
			zap.Int("cached", cache.Len()),
		)
	}

	if cfg.Dataset.MirrorPath != "" {
		opts = append(opts, tracker.WithMirror(&tracker.FileMirror{Path: cfg.Dataset.MirrorPath, Format: format}))
	}
	if store != nil {
		opts = append(opts, tracker.WithMirror(tracker.NewObjectMirror(store, cfg.Storage.Bucket, cfg.Dataset.MirrorObject, format)))
	}
	if runs != nil {
		opts = append(opts, tracker.WithRunStore(runs))
	}

	fetcher := fetch.New(cfg.Fetch, fetch.WithLogger(logg))
	return tracker.NewService(cfg.Dataset, fetcher, logg, opts...), nil
}
