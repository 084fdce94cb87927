// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

// Package engine combines the content, collaborative, and popularity models
// into hybrid product recommendations and owns their training lifecycle.
//
// # Concurrency
//
// The engine publishes each trained model generation as one immutable
// modelSet through an atomic pointer. Serving reads the current set without
// locks; training builds a complete new set from consistent snapshots of
// the behavior log and catalog, then swaps it in. At most one training run
// is in flight; concurrent triggers are no-ops reporting the in-progress
// state.
package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mercata/shoprec/internal/behavior"
	"github.com/mercata/shoprec/internal/catalog"
	"github.com/mercata/shoprec/internal/config"
	"github.com/mercata/shoprec/internal/engine/algorithms"
	"github.com/mercata/shoprec/internal/engine/storage"
)

// ErrTrainingInProgress is returned when a training trigger finds a run
// already in flight.
var ErrTrainingInProgress = errors.New("training already in progress")

// modelSet is one immutable trained generation. All three models were
// built from the same behavior and catalog snapshots.
type modelSet struct {
	version       uint64
	trainedAt     time.Time
	eventCount    int
	collaborative *algorithms.CollaborativeModel
	content       *algorithms.ContentModel
	popularity    *algorithms.PopularityModel
}

// Engine serves recommendations against the current model set and controls
// retraining.
type Engine struct {
	cfg   config.EngineConfig
	store *behavior.Store
	index *catalog.Index

	// models is nil when model persistence is disabled.
	models *storage.Store

	current  atomic.Pointer[modelSet]
	version  atomic.Uint64
	training atomic.Bool

	// trainMu serializes training runs; triggers use TryLock so they
	// never queue.
	trainMu sync.Mutex

	errMu     sync.Mutex
	lastError string
}

// New creates an engine. modelStore may be nil to disable persistence.
func New(cfg config.EngineConfig, store *behavior.Store, index *catalog.Index, modelStore *storage.Store) *Engine {
	return &Engine{
		cfg:    cfg,
		store:  store,
		index:  index,
		models: modelStore,
	}
}

// Status is a pure read of the engine's training and data state.
type Status struct {
	ModelVersion        uint64
	Training            bool
	LastTrainedAt       time.Time
	LastError           string
	UserCount           int
	ProductCount        int
	BehaviorCount       int
	CollaborativeOK     bool
	ContentOK           bool
	EventsSinceTraining int
	ShouldRetrain       bool
}

// Status reports the current model generation and data counts. It has no
// side effects and is stable between intervening record or train calls.
func (e *Engine) Status() Status {
	st := Status{
		Training:            e.training.Load(),
		LastError:           e.loadLastError(),
		UserCount:           e.store.UserCount(),
		ProductCount:        e.index.Current().Len(),
		BehaviorCount:       e.store.EventCount(),
		EventsSinceTraining: e.store.EventsSinceTraining(),
	}
	st.ShouldRetrain = st.EventsSinceTraining >= e.cfg.Training.RetrainThreshold

	if ms := e.current.Load(); ms != nil {
		st.ModelVersion = ms.version
		st.LastTrainedAt = ms.trainedAt
		st.CollaborativeOK = ms.collaborative.Trained()
		st.ContentOK = ms.content.Trained()
	}
	return st
}

func (e *Engine) setLastError(msg string) {
	e.errMu.Lock()
	e.lastError = msg
	e.errMu.Unlock()
}

func (e *Engine) loadLastError() string {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.lastError
}
