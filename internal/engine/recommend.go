// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

package engine

import (
	"sort"
	"time"

	"github.com/mercata/shoprec/internal/behavior"
	"github.com/mercata/shoprec/internal/catalog"
	"github.com/mercata/shoprec/internal/metrics"
)

// AlgorithmHybrid and AlgorithmFallback name the serving path taken for a
// recommendation response.
const (
	AlgorithmHybrid   = "hybrid"
	AlgorithmFallback = "popularity_fallback"
)

// Recommend returns up to n product ids for userID, best first. history
// ids are excluded from the result and, together with the user's profile,
// drive the content and behavior signals. The returned algorithm string
// names the serving path.
//
// Edge cases: n <= 0 or an empty catalog yield an empty result; a user
// with no profile, no history, and no collaborative row falls back to the
// deterministic popularity ordering.
func (e *Engine) Recommend(userID string, history []string, n int) ([]string, string) {
	start := time.Now()

	if n <= 0 {
		return []string{}, AlgorithmHybrid
	}
	if limit := e.cfg.Ranker.MaxN; limit > 0 && n > limit {
		n = limit
	}

	snap := e.index.Current()
	if snap.Len() == 0 {
		return []string{}, AlgorithmHybrid
	}

	ms := e.current.Load()
	profile := e.store.Profile(userID)

	// History ids unknown to the catalog are dropped from signal
	// generation but still excluded from results.
	exclude := make(map[string]bool, len(history))
	var knownHistory []string
	for _, id := range history {
		exclude[id] = true
		if snap.Contains(id) {
			knownHistory = append(knownHistory, id)
		}
	}

	if e.isColdStart(ms, userID, profile, knownHistory) {
		ids := e.fallbackRanking(ms, snap, exclude, n)
		metrics.RecordRecommendation(true, time.Since(start))
		return ids, AlgorithmFallback
	}

	candidates := e.candidatePool(ms, snap, knownHistory, exclude)
	ranked := e.rank(ms, snap, userID, profile, knownHistory, candidates)

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	metrics.RecordRecommendation(false, time.Since(start))
	return ranked, AlgorithmHybrid
}

// isColdStart reports whether no personal signal exists for the request:
// no history, no profile, and no collaborative row for the user.
func (e *Engine) isColdStart(ms *modelSet, userID string, profile behavior.Profile, history []string) bool {
	if len(history) > 0 || profile.HasHistory() {
		return false
	}
	if ms == nil || ms.collaborative == nil {
		return true
	}
	_, known := ms.collaborative.UserIndex[userID]
	return !known
}

// fallbackRanking is the deterministic cold-start ordering: popularity
// first, then remaining catalog products in insertion order. Without a
// trained generation it is plain catalog order. The popularity ranking was
// built against the trained generation's catalog, so ids missing from the
// current snapshot are skipped.
func (e *Engine) fallbackRanking(ms *modelSet, snap *catalog.Snapshot, exclude map[string]bool, n int) []string {
	out := make([]string, 0, n)
	seen := make(map[string]bool, n)

	if ms != nil && ms.popularity != nil {
		for _, id := range ms.popularity.Top(len(ms.popularity.Ranking), exclude) {
			if !snap.Contains(id) {
				continue
			}
			out = append(out, id)
			seen[id] = true
			if len(out) == n {
				return out
			}
		}
	}
	for _, id := range snap.IDs() {
		if exclude[id] || seen[id] {
			continue
		}
		out = append(out, id)
		if len(out) == n {
			break
		}
	}
	return out
}

// candidatePool returns the deduplicated candidate ids to score. With
// history and a trained content model the pool is the content neighbors of
// the most recent history items unioned with a popularity base pool, which
// bounds cost on large catalogs. Otherwise it is the whole catalog.
func (e *Engine) candidatePool(ms *modelSet, snap *catalog.Snapshot, history []string, exclude map[string]bool) []string {
	pool := make(map[string]bool)

	usedContent := false
	if len(history) > 0 && ms != nil && ms.content.Trained() {
		tail := history
		if ht := e.cfg.Ranker.HistoryTail; ht > 0 && len(tail) > ht {
			tail = tail[len(tail)-ht:]
		}
		for _, h := range tail {
			for _, sp := range ms.content.SimilarProducts(h, e.cfg.Ranker.SimilarPerHistoryItem) {
				// Model ids can outlive a catalog re-sync; only
				// current-snapshot products are candidates.
				if !exclude[sp.ProductID] && snap.Contains(sp.ProductID) {
					pool[sp.ProductID] = true
					usedContent = true
				}
			}
		}
		if ms.popularity != nil {
			for _, id := range ms.popularity.Top(e.cfg.Ranker.BasePoolSize, exclude) {
				if snap.Contains(id) {
					pool[id] = true
				}
			}
		}
	}

	if !usedContent && len(pool) == 0 {
		for _, id := range snap.IDs() {
			if !exclude[id] {
				pool[id] = true
			}
		}
	}

	out := make([]string, 0, len(pool))
	for id := range pool {
		out = append(out, id)
	}
	return out
}

// rank blends the three sub-scores per candidate and sorts descending with
// catalog-order tie-breaks. Each sub-score family is min-max normalized
// across the candidate set first so the configured blend ratio compares
// like with like; collaborative scores in particular are only meaningful
// relative to one model generation.
func (e *Engine) rank(ms *modelSet, snap *catalog.Snapshot, userID string, profile behavior.Profile, history []string, candidates []string) []string {
	if len(candidates) == 0 {
		return []string{}
	}

	contentScores := make(map[string]float64, len(candidates))
	behaviorScores := make(map[string]float64, len(candidates))
	var collabScores map[string]float64
	if ms != nil && ms.collaborative != nil {
		collabScores = ms.collaborative.ScoreForUser(userID, candidates)
	} else {
		collabScores = make(map[string]float64, len(candidates))
	}

	for _, id := range candidates {
		if ms != nil {
			contentScores[id] = ms.content.ScoreAgainstHistory(history, id)
		}
		if p, ok := snap.Get(id); ok {
			behaviorScores[id] = e.behaviorScore(profile, p)
		}
	}

	minMaxNormalize(collabScores)
	minMaxNormalize(behaviorScores)
	minMaxNormalize(contentScores)

	b := e.cfg.Blend
	total := b.Collaborative + b.Behavior + b.Content
	if total == 0 {
		total = 1
	}

	combined := make(map[string]float64, len(candidates))
	for _, id := range candidates {
		combined[id] = (b.Collaborative*collabScores[id] +
			b.Behavior*behaviorScores[id] +
			b.Content*contentScores[id]) / total
	}

	ranked := append([]string(nil), candidates...)
	sort.Slice(ranked, func(i, j int) bool {
		if combined[ranked[i]] != combined[ranked[j]] {
			return combined[ranked[i]] > combined[ranked[j]]
		}
		return snap.Order(ranked[i]) < snap.Order(ranked[j])
	})
	return ranked
}

// behaviorScore matches a candidate against the user's preference buckets:
// weighted category and brand affinity normalized by total interaction
// weight, plus a bonus when the price falls inside the user's observed
// range.
func (e *Engine) behaviorScore(profile behavior.Profile, p catalog.Product) float64 {
	if !profile.HasHistory() || profile.TotalWeight <= 0 {
		return 0
	}

	score := (profile.Categories[p.Category]*e.cfg.Behavior.CategoryWeight +
		profile.Brands[p.Brand]*e.cfg.Behavior.BrandWeight) / profile.TotalWeight

	if profile.InPriceRange(p.Price) {
		score += e.cfg.Behavior.PriceRangeBonus
	}
	return score
}

// minMaxNormalize rescales scores to [0, 1] in place. All-equal non-zero
// inputs map to 0.5; an all-zero family stays zero so absent signals do
// not fabricate preference.
func minMaxNormalize(scores map[string]float64) {
	if len(scores) == 0 {
		return
	}
	var minS, maxS float64
	first := true
	for _, s := range scores {
		if first {
			minS, maxS = s, s
			first = false
			continue
		}
		if s < minS {
			minS = s
		}
		if s > maxS {
			maxS = s
		}
	}

	span := maxS - minS
	if span == 0 {
		if maxS == 0 {
			return
		}
		for id := range scores {
			scores[id] = 0.5
		}
		return
	}
	for id, s := range scores {
		scores[id] = (s - minS) / span
	}
}
