// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

// Package main is the entry point for the Shoprec server.
//
// Shoprec serves personalized product recommendations for a storefront by
// blending three signals: collaborative filtering learned from all users'
// interactions, the requesting user's own behavior profile, and content
// similarity over the product catalog.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, YAML file, and SHOPREC_* environment
//     variables (Koanf v2)
//  2. Behavior store: in-memory interaction log, reloaded from disk when
//     persistence is enabled
//  3. Catalog index: loaded from a JSON snapshot and/or synced periodically
//     from the storefront behind a circuit breaker
//  4. Recommendation engine: publishes immutable model generations; the
//     latest persisted generation is loaded at startup
//  5. HTTP server: JSON API on port 5000 with Prometheus metrics
//
// All long-running work (catalog sync, behavior persistence, the retraining
// scheduler, and the HTTP server) runs under a supervision tree so a crash
// in one layer restarts that layer without interrupting serving.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (SHOPREC_SERVER_PORT, SHOPREC_ENGINE_TRAINING_RETRAIN_THRESHOLD, ...)
//   - Config file (shoprec.yaml, or the path in SHOPREC_CONFIG)
//   - Built-in defaults
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (shutdown timeout)
//   - Flushes the behavior log to disk
//
// # Example Usage
//
// Development with a local catalog snapshot:
//
//	export SHOPREC_CATALOG_SNAPSHOT_PATH=./products.json
//	./shoprec
//
// Production syncing the catalog from the storefront:
//
//	export SHOPREC_CATALOG_SOURCE_URL=https://store.example.com/api/products
//	export SHOPREC_DATA_DIR=/var/lib/shoprec
//	./shoprec
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mercata/shoprec/internal/api"
	"github.com/mercata/shoprec/internal/behavior"
	"github.com/mercata/shoprec/internal/catalog"
	"github.com/mercata/shoprec/internal/config"
	"github.com/mercata/shoprec/internal/engine"
	"github.com/mercata/shoprec/internal/engine/storage"
	"github.com/mercata/shoprec/internal/logging"
	"github.com/mercata/shoprec/internal/supervisor"
	"github.com/mercata/shoprec/internal/supervisor/services"
)

// version is stamped at build time via -ldflags.
var version = "dev"

const behaviorFile = "behavior.json"

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load("")
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("data_dir", cfg.Data.Dir).
		Int("retrain_threshold", cfg.Engine.Training.RetrainThreshold).
		Msg("Starting Shoprec")

	// Behavior store with the configured action weights
	store := behavior.NewStore(actionWeights(cfg))

	behaviorPath := filepath.Join(cfg.Data.Dir, behaviorFile)
	if cfg.Data.PersistBehavior {
		n, err := store.LoadFile(behaviorPath)
		if err != nil {
			logging.Fatal().Err(err).Str("path", behaviorPath).Msg("Failed to load behavior log")
		}
		if n > 0 {
			logging.Info().Int("events", n).Int("users", store.UserCount()).Msg("Behavior log loaded")
		}
	}

	// Catalog index, seeded from a snapshot file when configured
	index := catalog.NewIndex()
	if cfg.Catalog.SnapshotPath != "" {
		snap, err := catalog.LoadFile(cfg.Catalog.SnapshotPath)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Catalog.SnapshotPath).Msg("Failed to load catalog snapshot")
		}
		index.Swap(snap)
		logging.Info().Int("products", snap.Len()).Msg("Catalog snapshot loaded")
	}

	// Model persistence is optional; a nil store disables it
	var modelStore *storage.Store
	if cfg.Data.PersistModels {
		modelStore, err = storage.NewStore(filepath.Join(cfg.Data.Dir, "models"))
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open model store")
		}
	}

	eng := engine.New(cfg.Engine, store, index, modelStore)
	if modelStore != nil {
		if err := eng.LoadPersisted(); err != nil {
			logging.Warn().Err(err).Msg("Failed to load persisted models, starting untrained")
		} else if eng.Status().ModelVersion > 0 {
			logging.Info().Uint64("model_version", eng.Status().ModelVersion).Msg("Persisted models loaded")
		}
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewServer(cfg, eng, store, index, version).Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	// Data layer services
	if cfg.Data.PersistBehavior {
		tree.AddDataService(services.NewBehaviorPersistService(store, behaviorPath, time.Minute))
	}
	if cfg.Catalog.SourceURL != "" {
		syncer := catalog.NewSyncer(catalog.SyncConfig{
			SourceURL:         cfg.Catalog.SourceURL,
			Interval:          cfg.Catalog.SyncInterval,
			RequestTimeout:    cfg.Catalog.RequestTimeout,
			RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
		}, index)
		tree.AddDataService(services.NewCatalogSyncService(syncer))
		logging.Info().
			Str("source", cfg.Catalog.SourceURL).
			Dur("interval", cfg.Catalog.SyncInterval).
			Msg("Catalog sync enabled")
	}

	// Training layer
	tree.AddTrainingService(services.NewTrainingService(
		eng,
		cfg.Engine.Training.Interval,
		cfg.Engine.Training.TrainOnStartup,
	))

	// API layer
	tree.AddAPIService(services.NewHTTPService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for services to stop")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor finishes
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Shoprec stopped gracefully")
}

// actionWeights converts the configured weights into the behavior store's map.
func actionWeights(cfg *config.Config) behavior.Weights {
	w := cfg.Engine.ActionWeights
	return behavior.Weights{
		behavior.ActionView:           w.View,
		behavior.ActionAddToCart:      w.AddToCart,
		behavior.ActionPurchase:       w.Purchase,
		behavior.ActionLike:           w.Like,
		behavior.ActionShare:          w.Share,
		behavior.ActionRemoveFromCart: w.RemoveFromCart,
	}
}
