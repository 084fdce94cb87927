// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

package services

import (
	"context"
	"errors"
	"time"

	"github.com/mercata/shoprec/internal/engine"
	"github.com/mercata/shoprec/internal/logging"
)

// TrainingService runs the periodic retraining schedule: an optional
// training pass on startup, then one per interval. Threshold-triggered
// retrains happen outside this service, directly from event ingestion.
type TrainingService struct {
	engine         *engine.Engine
	interval       time.Duration
	trainOnStartup bool
}

// NewTrainingService creates the scheduler. An interval of zero disables
// the periodic pass.
func NewTrainingService(eng *engine.Engine, interval time.Duration, trainOnStartup bool) *TrainingService {
	return &TrainingService{
		engine:         eng,
		interval:       interval,
		trainOnStartup: trainOnStartup,
	}
}

// Serve implements suture.Service.
func (s *TrainingService) Serve(ctx context.Context) error {
	if s.trainOnStartup {
		s.train(ctx, "startup")
	}

	if s.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.train(ctx, "interval")
		}
	}
}

// train runs one scheduled pass. Failures are logged, never fatal to the
// service: the previous model generation keeps serving.
func (s *TrainingService) train(ctx context.Context, trigger string) {
	err := s.engine.Train(ctx, trigger)
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrTrainingInProgress):
		logging.Debug().Str("component", "training").Str("trigger", trigger).Msg("training already in progress")
	case errors.Is(err, context.Canceled):
	default:
		logging.Warn().Str("component", "training").Str("trigger", trigger).Err(err).Msg("scheduled training failed")
	}
}

// String identifies the service in supervisor logs.
func (s *TrainingService) String() string {
	return "training-scheduler"
}
