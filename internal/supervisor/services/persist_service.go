// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

package services

import (
	"context"
	"time"

	"github.com/mercata/shoprec/internal/behavior"
	"github.com/mercata/shoprec/internal/logging"
)

// defaultPersistInterval is how often the behavior log is flushed to disk.
const defaultPersistInterval = time.Minute

// BehaviorPersistService periodically writes the behavior log to disk and
// flushes once more on shutdown, bounding data loss to one interval.
type BehaviorPersistService struct {
	store    *behavior.Store
	path     string
	interval time.Duration
}

// NewBehaviorPersistService creates the flusher.
func NewBehaviorPersistService(store *behavior.Store, path string, interval time.Duration) *BehaviorPersistService {
	if interval <= 0 {
		interval = defaultPersistInterval
	}
	return &BehaviorPersistService{store: store, path: path, interval: interval}
}

// Serve implements suture.Service.
func (s *BehaviorPersistService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// lastCount skips writes when nothing changed.
	lastCount := -1

	for {
		select {
		case <-ctx.Done():
			s.flush(&lastCount)
			return ctx.Err()
		case <-ticker.C:
			s.flush(&lastCount)
		}
	}
}

func (s *BehaviorPersistService) flush(lastCount *int) {
	count := s.store.EventCount()
	if count == *lastCount {
		return
	}
	if err := s.store.SaveFile(s.path); err != nil {
		logging.Warn().Str("component", "persist").Err(err).Msg("behavior log flush failed")
		return
	}
	*lastCount = count
	logging.Debug().Str("component", "persist").Int("events", count).Msg("behavior log flushed")
}

// String identifies the service in supervisor logs.
func (s *BehaviorPersistService) String() string {
	return "behavior-persist"
}
