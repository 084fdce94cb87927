// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

package algorithms

import (
	"reflect"
	"testing"

	"github.com/mercata/shoprec/internal/behavior"
	"github.com/mercata/shoprec/internal/catalog"
)

func popCatalog() *catalog.Snapshot {
	return catalog.NewSnapshot([]catalog.Product{
		{ID: "A", Name: "Headphones"},
		{ID: "B", Name: "Speaker"},
		{ID: "C", Name: "Keyboard"},
	})
}

func TestFitPopularityRanksByWeight(t *testing.T) {
	events := []behavior.Event{
		ev("u1", "B", 5),
		ev("u2", "B", 1),
		ev("u1", "C", 3),
	}

	m := FitPopularity(events, popCatalog())
	want := []string{"B", "C", "A"}
	if !reflect.DeepEqual(m.Ranking, want) {
		t.Errorf("Ranking = %v, want %v", m.Ranking, want)
	}
}

func TestFitPopularityNoEventsFallsBackToCatalogOrder(t *testing.T) {
	m := FitPopularity(nil, popCatalog())
	want := []string{"A", "B", "C"}
	if !reflect.DeepEqual(m.Ranking, want) {
		t.Errorf("Ranking = %v, want catalog order %v", m.Ranking, want)
	}
}

func TestFitPopularityTiesKeepCatalogOrder(t *testing.T) {
	events := []behavior.Event{
		ev("u1", "C", 2),
		ev("u1", "A", 2),
	}
	m := FitPopularity(events, popCatalog())
	// A and C tie; A comes first in the catalog.
	want := []string{"A", "C", "B"}
	if !reflect.DeepEqual(m.Ranking, want) {
		t.Errorf("Ranking = %v, want %v", m.Ranking, want)
	}
}

func TestFitPopularityIgnoresNegativeAndUnknown(t *testing.T) {
	events := []behavior.Event{
		ev("u1", "A", -3),
		ev("u1", "ghost", 5),
		ev("u1", "B", 1),
	}
	m := FitPopularity(events, popCatalog())
	if m.Score("A") != 0 {
		t.Errorf("negative weight counted: %v", m.Score("A"))
	}
	if m.Score("ghost") != 0 {
		t.Error("unknown product counted")
	}
	if m.Ranking[0] != "B" {
		t.Errorf("Ranking[0] = %s, want B", m.Ranking[0])
	}
}

func TestTop(t *testing.T) {
	m := FitPopularity(nil, popCatalog())

	if got := m.Top(2, nil); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("Top(2) = %v", got)
	}
	if got := m.Top(10, nil); len(got) != 3 {
		t.Errorf("Top(10) len = %d, want 3", len(got))
	}
	if got := m.Top(0, nil); got != nil {
		t.Errorf("Top(0) = %v, want nil", got)
	}
	if got := m.Top(2, map[string]bool{"A": true}); !reflect.DeepEqual(got, []string{"B", "C"}) {
		t.Errorf("Top with exclude = %v, want [B C]", got)
	}
}
