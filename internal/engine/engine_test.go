// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

package engine

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/mercata/shoprec/internal/behavior"
	"github.com/mercata/shoprec/internal/catalog"
	"github.com/mercata/shoprec/internal/config"
	"github.com/mercata/shoprec/internal/engine/storage"
)

func testCatalog() []catalog.Product {
	return []catalog.Product{
		{ID: "A", Name: "Wireless Headphones", Description: "bluetooth wireless audio", Category: "electronics", Brand: "Sonic", Price: 199},
		{ID: "B", Name: "Bluetooth Speaker", Description: "portable bluetooth wireless audio", Category: "electronics", Brand: "Sonic", Price: 89},
		{ID: "C", Name: "Mechanical Keyboard", Description: "clicky gaming keyboard", Category: "gaming", Brand: "KeyPro", Price: 129},
		{ID: "D", Name: "Gaming Mouse", Description: "precision gaming mouse", Category: "gaming", Brand: "KeyPro", Price: 59},
		{ID: "E", Name: "USB Cable", Description: "braided charging cable", Category: "accessories", Brand: "Plug", Price: 9},
	}
}

func newTestEngine(t *testing.T, products []catalog.Product) (*Engine, *behavior.Store) {
	t.Helper()
	cfg := config.Default().Engine
	cfg.Collaborative.Factors = 4
	cfg.Collaborative.Iterations = 5

	store := behavior.NewStore(nil)
	index := catalog.NewIndex()
	index.Swap(catalog.NewSnapshot(products))
	return New(cfg, store, index, nil), store
}

func recordN(t *testing.T, store *behavior.Store, user, product string, action behavior.Action, meta behavior.Metadata, n int) {
	t.Helper()
	for range n {
		if _, err := store.Record(user, action, product, meta); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRecommendAtMostNNoDuplicates(t *testing.T) {
	e, _ := newTestEngine(t, testCatalog())
	if err := e.Train(context.Background(), "manual"); err != nil {
		t.Fatal(err)
	}

	for _, n := range []int{1, 3, 5, 100} {
		ids, _ := e.Recommend("u1", nil, n)
		if len(ids) > n {
			t.Errorf("n=%d: got %d ids", n, len(ids))
		}
		seen := make(map[string]bool)
		for _, id := range ids {
			if seen[id] {
				t.Errorf("n=%d: duplicate id %s", n, id)
			}
			seen[id] = true
		}
	}
}

func TestRecommendEmptyCatalog(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	if err := e.Train(context.Background(), "manual"); err != nil {
		t.Fatal(err)
	}

	ids, _ := e.Recommend("u1", nil, 5)
	if len(ids) != 0 {
		t.Errorf("empty catalog should yield empty result, got %v", ids)
	}
}

func TestRecommendNonPositiveN(t *testing.T) {
	e, _ := newTestEngine(t, testCatalog())
	for _, n := range []int{0, -1} {
		ids, _ := e.Recommend("u1", nil, n)
		if len(ids) != 0 {
			t.Errorf("n=%d should yield empty result, got %v", n, ids)
		}
	}
}

func TestRecommendExcludesHistory(t *testing.T) {
	e, store := newTestEngine(t, testCatalog())
	meta := behavior.Metadata{Category: "electronics", Brand: "Sonic", Price: 199}
	recordN(t, store, "u1", "A", behavior.ActionPurchase, meta, 3)
	recordN(t, store, "u1", "B", behavior.ActionView, meta, 2)
	if err := e.Train(context.Background(), "manual"); err != nil {
		t.Fatal(err)
	}

	history := []string{"A", "B"}
	ids, _ := e.Recommend("u1", history, 5)
	for _, id := range ids {
		for _, h := range history {
			if id == h {
				t.Errorf("history id %s appeared in result %v", h, ids)
			}
		}
	}
	// Unknown history ids are still excluded, never a failure.
	ids, _ = e.Recommend("u1", []string{"ghost"}, 5)
	for _, id := range ids {
		if id == "ghost" {
			t.Error("unknown history id leaked into result")
		}
	}
}

func TestRecommendColdStartFallback(t *testing.T) {
	e, _ := newTestEngine(t, testCatalog())
	if err := e.Train(context.Background(), "manual"); err != nil {
		t.Fatal(err)
	}

	ids, algo := e.Recommend("brand-new-user", nil, 5)
	if algo != AlgorithmFallback {
		t.Errorf("algorithm = %s, want %s", algo, AlgorithmFallback)
	}
	if len(ids) == 0 {
		t.Fatal("cold start with non-empty catalog must not be empty")
	}
	// No events recorded: the fallback is catalog insertion order.
	if !reflect.DeepEqual(ids, []string{"A", "B", "C", "D", "E"}) {
		t.Errorf("fallback order = %v, want catalog order", ids)
	}

	// Deterministic across calls.
	again, _ := e.Recommend("brand-new-user", nil, 5)
	if !reflect.DeepEqual(ids, again) {
		t.Errorf("fallback not deterministic: %v vs %v", ids, again)
	}
}

func TestRecommendUntrainedEngineFallsBackToCatalogOrder(t *testing.T) {
	e, _ := newTestEngine(t, testCatalog())

	ids, algo := e.Recommend("u1", nil, 3)
	if algo != AlgorithmFallback {
		t.Errorf("algorithm = %s, want %s", algo, AlgorithmFallback)
	}
	if !reflect.DeepEqual(ids, []string{"A", "B", "C"}) {
		t.Errorf("ids = %v, want first three catalog products", ids)
	}
}

// Behavior and content signals both favor electronics for a user who only
// interacted with electronics.
func TestRecommendElectronicsScenario(t *testing.T) {
	e, store := newTestEngine(t, testCatalog())
	metaA := behavior.Metadata{Category: "electronics", Brand: "Sonic", Price: 199}
	metaB := behavior.Metadata{Category: "electronics", Brand: "Sonic", Price: 89}

	recordN(t, store, "u1", "A", behavior.ActionView, metaA, 3)
	recordN(t, store, "u1", "A", behavior.ActionPurchase, metaA, 1)
	recordN(t, store, "u1", "B", behavior.ActionView, metaB, 2)
	recordN(t, store, "u1", "B", behavior.ActionPurchase, metaB, 1)
	// A second user gives the factorization something to generalize from.
	recordN(t, store, "u2", "A", behavior.ActionPurchase, metaA, 1)
	recordN(t, store, "u2", "B", behavior.ActionView, metaB, 1)

	if err := e.Train(context.Background(), "manual"); err != nil {
		t.Fatal(err)
	}

	ids, algo := e.Recommend("u1", nil, 2)
	if algo != AlgorithmHybrid {
		t.Errorf("algorithm = %s, want %s", algo, AlgorithmHybrid)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2", len(ids))
	}
	for _, id := range ids {
		if id == "C" || id == "D" || id == "E" {
			t.Errorf("non-electronics product %s ranked above electronics: %v", id, ids)
		}
	}
}

func TestTrainPublishesPartialGenerationWithoutEvents(t *testing.T) {
	e, _ := newTestEngine(t, testCatalog())

	if err := e.Train(context.Background(), "manual"); err != nil {
		t.Fatalf("training an empty log should succeed, got %v", err)
	}

	st := e.Status()
	if st.ModelVersion != 1 {
		t.Errorf("ModelVersion = %d, want 1", st.ModelVersion)
	}
	if !st.ContentOK {
		t.Error("content model should be trained")
	}
	if st.CollaborativeOK {
		t.Error("collaborative model should be untrained without events")
	}
	if st.LastError != "" {
		t.Errorf("LastError = %q, want empty", st.LastError)
	}
}

func TestTrainOnlyOneRunInFlight(t *testing.T) {
	e, _ := newTestEngine(t, testCatalog())

	e.trainMu.Lock()
	err := e.Train(context.Background(), "manual")
	e.trainMu.Unlock()

	if !errors.Is(err, ErrTrainingInProgress) {
		t.Errorf("err = %v, want ErrTrainingInProgress", err)
	}
}

func TestConcurrentTrainTriggers(t *testing.T) {
	e, store := newTestEngine(t, testCatalog())
	meta := behavior.Metadata{Category: "electronics"}
	recordN(t, store, "u1", "A", behavior.ActionView, meta, 5)
	recordN(t, store, "u2", "B", behavior.ActionView, meta, 5)

	const triggers = 8
	var wg sync.WaitGroup
	results := make(chan error, triggers)
	for range triggers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- e.Train(context.Background(), "manual")
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, inProgress int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrTrainingInProgress):
			inProgress++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded == 0 {
		t.Error("no trigger completed a training run")
	}
	if succeeded+inProgress != triggers {
		t.Errorf("succeeded %d + in-progress %d != %d", succeeded, inProgress, triggers)
	}
}

func TestStatusIdempotent(t *testing.T) {
	e, store := newTestEngine(t, testCatalog())
	recordN(t, store, "u1", "A", behavior.ActionView, behavior.Metadata{Category: "electronics"}, 3)
	if err := e.Train(context.Background(), "manual"); err != nil {
		t.Fatal(err)
	}

	first := e.Status()
	for range 5 {
		if got := e.Status(); !reflect.DeepEqual(got, first) {
			t.Errorf("Status changed without intervening writes: %+v vs %+v", got, first)
		}
	}
}

func TestStatusShouldRetrain(t *testing.T) {
	e, store := newTestEngine(t, testCatalog())
	e.cfg.Training.RetrainThreshold = 3

	if e.Status().ShouldRetrain {
		t.Error("fresh engine should not need retraining")
	}
	recordN(t, store, "u1", "A", behavior.ActionView, behavior.Metadata{}, 3)
	if !e.Status().ShouldRetrain {
		t.Error("threshold crossed but ShouldRetrain is false")
	}
}

func TestNotifyEventTriggersBackgroundRetrain(t *testing.T) {
	e, store := newTestEngine(t, testCatalog())
	e.cfg.Training.RetrainThreshold = 2

	recordN(t, store, "u1", "A", behavior.ActionView, behavior.Metadata{Category: "electronics"}, 2)
	recordN(t, store, "u2", "B", behavior.ActionView, behavior.Metadata{Category: "electronics"}, 1)
	e.NotifyEvent()

	deadline := time.After(5 * time.Second)
	for e.Status().ModelVersion == 0 {
		select {
		case <-deadline:
			t.Fatal("background retrain never completed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if got := e.Status().EventsSinceTraining; got != 0 {
		t.Errorf("EventsSinceTraining = %d, want 0 after retrain", got)
	}
}

func TestTrainPersistAndReload(t *testing.T) {
	dir := t.TempDir()
	modelStore, err := storage.NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Default().Engine
	cfg.Collaborative.Factors = 4
	cfg.Collaborative.Iterations = 5

	store := behavior.NewStore(nil)
	index := catalog.NewIndex()
	index.Swap(catalog.NewSnapshot(testCatalog()))

	e := New(cfg, store, index, modelStore)
	meta := behavior.Metadata{Category: "electronics", Brand: "Sonic"}
	recordN(t, store, "u1", "A", behavior.ActionPurchase, meta, 2)
	recordN(t, store, "u2", "B", behavior.ActionView, meta, 2)
	if err := e.Train(context.Background(), "manual"); err != nil {
		t.Fatal(err)
	}

	reloaded := New(cfg, behavior.NewStore(nil), index, modelStore)
	if err := reloaded.LoadPersisted(); err != nil {
		t.Fatalf("LoadPersisted: %v", err)
	}

	st := reloaded.Status()
	if st.ModelVersion != 1 {
		t.Errorf("restored ModelVersion = %d, want 1", st.ModelVersion)
	}
	if !st.ContentOK || !st.CollaborativeOK {
		t.Errorf("restored trained flags = content %v, collaborative %v", st.ContentOK, st.CollaborativeOK)
	}

	ids, _ := reloaded.Recommend("stranger", nil, 3)
	if len(ids) == 0 {
		t.Error("restored engine should serve fallback recommendations")
	}
}

func TestLoadPersistedWithoutFilesIsNoop(t *testing.T) {
	modelStore, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store := behavior.NewStore(nil)
	index := catalog.NewIndex()
	e := New(config.Default().Engine, store, index, modelStore)

	if err := e.LoadPersisted(); err != nil {
		t.Fatalf("LoadPersisted on empty store: %v", err)
	}
	if e.Status().ModelVersion != 0 {
		t.Error("no models on disk should leave the engine untrained")
	}
}

func TestRecommendDropsProductsRemovedBySync(t *testing.T) {
	e, store := newTestEngine(t, testCatalog())
	meta := behavior.Metadata{Category: "electronics", Brand: "Sonic", Price: 89}
	recordN(t, store, "u1", "B", behavior.ActionPurchase, meta, 3)
	recordN(t, store, "u2", "C", behavior.ActionView, behavior.Metadata{Category: "gaming", Brand: "KeyPro", Price: 129}, 2)
	if err := e.Train(context.Background(), "manual"); err != nil {
		t.Fatal(err)
	}

	// A re-sync shrinks the catalog to a single product while the trained
	// generation still scores the full one.
	e.index.Swap(catalog.NewSnapshot(testCatalog()[:1]))

	ids, alg := e.Recommend("stranger", nil, 5)
	if alg != AlgorithmFallback {
		t.Fatalf("expected fallback path, got %s", alg)
	}
	if !reflect.DeepEqual(ids, []string{"A"}) {
		t.Errorf("fallback must only serve current catalog, got %v", ids)
	}

	ids, _ = e.Recommend("u1", []string{"A"}, 5)
	for _, id := range ids {
		if id != "A" {
			t.Errorf("history path served removed product %s in %v", id, ids)
		}
	}
	if len(ids) != 0 {
		t.Errorf("only product A remains and it is in history, got %v", ids)
	}
}
