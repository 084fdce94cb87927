// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

package algorithms

import (
	"sort"
	"time"

	"github.com/mercata/shoprec/internal/behavior"
	"github.com/mercata/shoprec/internal/catalog"
)

// PopularityModel ranks products by accumulated positive interaction
// weight. It is the deterministic cold-start fallback: products without any
// interactions follow in catalog insertion order, so a non-empty catalog
// always yields a non-empty ranking.
//
// Fields are exported for gob persistence; the model is immutable after
// FitPopularity returns.
type PopularityModel struct {
	// Ranking is every catalog product id, most popular first.
	Ranking   []string
	Scores    map[string]float64
	TrainedAt time.Time
}

// FitPopularity builds the popularity ranking from the event snapshot and
// catalog snapshot.
func FitPopularity(events []behavior.Event, snap *catalog.Snapshot) *PopularityModel {
	scores := make(map[string]float64)
	for _, e := range events {
		if !snap.Contains(e.ProductID) {
			continue
		}
		if e.Weight > 0 {
			scores[e.ProductID] += e.Weight
		}
	}

	ranking := append([]string(nil), snap.IDs()...)
	sort.SliceStable(ranking, func(i, j int) bool {
		return scores[ranking[i]] > scores[ranking[j]]
	})

	return &PopularityModel{
		Ranking:   ranking,
		Scores:    scores,
		TrainedAt: time.Now().UTC(),
	}
}

// Top returns the first n ids of the ranking, excluding any id in the
// exclude set.
func (m *PopularityModel) Top(n int, exclude map[string]bool) []string {
	if m == nil || n <= 0 {
		return nil
	}
	out := make([]string, 0, n)
	for _, id := range m.Ranking {
		if exclude[id] {
			continue
		}
		out = append(out, id)
		if len(out) == n {
			break
		}
	}
	return out
}

// Score returns the accumulated positive weight for id.
func (m *PopularityModel) Score(id string) float64 {
	if m == nil {
		return 0
	}
	return m.Scores[id]
}
