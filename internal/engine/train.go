// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mercata/shoprec/internal/engine/algorithms"
	"github.com/mercata/shoprec/internal/engine/storage"
	"github.com/mercata/shoprec/internal/logging"
	"github.com/mercata/shoprec/internal/metrics"
)

// keptModelVersions is how many persisted generations Prune retains.
const keptModelVersions = 3

// Train builds a new model generation and atomically publishes it. If a
// run is already in flight it returns ErrTrainingInProgress without
// queuing. trigger names the cause for logging and metrics: "startup",
// "threshold", "interval", or "manual".
//
// The collaborative model needs interaction data; when the behavior log is
// too small the generation is still published with content and popularity
// models so serving can degrade instead of failing. Any other model
// failure keeps the previous generation active.
func (e *Engine) Train(ctx context.Context, trigger string) error {
	if !e.trainMu.TryLock() {
		metrics.RecordTrainingSkipped(trigger)
		return ErrTrainingInProgress
	}
	defer e.trainMu.Unlock()

	e.training.Store(true)
	defer e.training.Store(false)

	if e.cfg.Training.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Training.Timeout)
		defer cancel()
	}

	start := time.Now()
	events := e.store.Snapshot()
	snap := e.index.Current()

	logging.Info().
		Str("component", "engine").
		Str("trigger", trigger).
		Int("events", len(events)).
		Int("products", snap.Len()).
		Msg("training started")

	ms := &modelSet{
		version:    e.version.Add(1),
		trainedAt:  time.Now().UTC(),
		eventCount: len(events),
	}

	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		ms.content = algorithms.FitContent(snap, algorithms.ContentConfig{
			MaxFeatures: e.cfg.Content.MaxFeatures,
			MaxNGram:    e.cfg.Content.MaxNGram,
		})
		ms.popularity = algorithms.FitPopularity(events, snap)
		return nil
	})

	g.Go(func() error {
		if len(events) < e.cfg.Training.MinEvents {
			return nil
		}
		m, err := algorithms.FitCollaborative(events, algorithms.CollaborativeConfig{
			Factors:        e.cfg.Collaborative.Factors,
			Iterations:     e.cfg.Collaborative.Iterations,
			Regularization: e.cfg.Collaborative.Regularization,
			Seed:           e.cfg.Collaborative.Seed,
		})
		if err != nil {
			if errors.Is(err, algorithms.ErrInsufficientData) {
				return nil
			}
			return fmt.Errorf("collaborative training: %w", err)
		}
		ms.collaborative = m
		return nil
	})

	if err := g.Wait(); err != nil {
		e.setLastError(err.Error())
		metrics.RecordTrainingRun(trigger, time.Since(start), err)
		logging.Error().Str("component", "engine").Str("trigger", trigger).Err(err).Msg("training failed")
		return err
	}
	if err := ctx.Err(); err != nil {
		e.setLastError(err.Error())
		metrics.RecordTrainingRun(trigger, time.Since(start), err)
		return err
	}

	e.current.Store(ms)
	e.store.CommitTraining(ms.eventCount)
	e.setLastError("")

	metrics.RecordTrainingRun(trigger, time.Since(start), nil)
	metrics.ModelVersion.Set(float64(ms.version))

	logging.Info().
		Str("component", "engine").
		Str("trigger", trigger).
		Uint64("model_version", ms.version).
		Bool("collaborative", ms.collaborative.Trained()).
		Bool("content", ms.content.Trained()).
		Dur("duration", time.Since(start)).
		Msg("training complete")

	if e.models != nil {
		if err := e.persist(ms, time.Since(start)); err != nil {
			// Persistence trouble must not fail the run; the new
			// generation is already serving.
			logging.Warn().Str("component", "engine").Err(err).Msg("model persistence failed")
		}
	}
	return nil
}

// NotifyEvent triggers a background retrain once the events-since-training
// counter crosses the configured threshold. Called after each recorded
// behavior event; concurrent triggers collapse into one run.
func (e *Engine) NotifyEvent() {
	if e.store.EventsSinceTraining() < e.cfg.Training.RetrainThreshold {
		return
	}
	if e.training.Load() {
		return
	}
	go func() {
		if err := e.Train(context.Background(), "threshold"); err != nil && !errors.Is(err, ErrTrainingInProgress) {
			logging.Warn().Str("component", "engine").Err(err).Msg("threshold retrain failed")
		}
	}()
}

func (e *Engine) persist(ms *modelSet, took time.Duration) error {
	meta := storage.ModelMetadata{
		TrainedAt:     ms.trainedAt,
		EventCount:    ms.eventCount,
		UserCount:     ms.collaborative.UserCount(),
		ProductCount:  ms.content.ProductCount(),
		TrainingMilli: took.Milliseconds(),
	}

	if ms.collaborative != nil {
		if err := e.models.Save("collaborative", ms.version, ms.collaborative, meta); err != nil {
			return err
		}
	}
	if err := e.models.Save("content", ms.version, ms.content, meta); err != nil {
		return err
	}
	if err := e.models.Save("popularity", ms.version, ms.popularity, meta); err != nil {
		return err
	}

	for _, name := range []string{"collaborative", "content", "popularity"} {
		if err := e.models.Prune(name, keptModelVersions); err != nil {
			return err
		}
	}
	return nil
}

// LoadPersisted restores the newest persisted generation and publishes it.
// Missing models are not an error; the engine simply starts untrained.
func (e *Engine) LoadPersisted() error {
	if e.models == nil {
		return nil
	}

	version, ok := e.models.LatestVersion("content")
	if !ok {
		return nil
	}

	ms := &modelSet{version: version}

	content := &algorithms.ContentModel{}
	meta, err := e.models.Load("content", version, content)
	if err != nil {
		return fmt.Errorf("load content model: %w", err)
	}
	ms.content = content
	ms.trainedAt = meta.TrainedAt
	ms.eventCount = meta.EventCount

	popularity := &algorithms.PopularityModel{}
	if _, err := e.models.Load("popularity", version, popularity); err != nil {
		return fmt.Errorf("load popularity model: %w", err)
	}
	ms.popularity = popularity

	if _, ok := e.models.LatestVersion("collaborative"); ok {
		collaborative := &algorithms.CollaborativeModel{}
		if _, err := e.models.Load("collaborative", version, collaborative); err == nil {
			ms.collaborative = collaborative
		}
	}

	e.current.Store(ms)
	e.version.Store(version)
	metrics.ModelVersion.Set(float64(version))

	logging.Info().
		Str("component", "engine").
		Uint64("model_version", version).
		Bool("collaborative", ms.collaborative.Trained()).
		Msg("restored persisted models")
	return nil
}
