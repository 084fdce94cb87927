// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

package algorithms

import (
	"errors"
	"math/rand"
	"time"

	"github.com/mercata/shoprec/internal/behavior"
)

// ErrInsufficientData is returned when the event log holds no usable
// interactions for factorization.
var ErrInsufficientData = errors.New("insufficient interaction data")

// CollaborativeConfig holds matrix-factorization parameters.
type CollaborativeConfig struct {
	// Factors is the rank of the factorization.
	Factors int
	// Iterations is the number of alternating optimization passes.
	Iterations int
	// Regularization is the L2 penalty applied to both factor matrices.
	Regularization float64
	// Seed makes factor initialization deterministic.
	Seed int64
}

// CollaborativeModel holds the low-rank factor matrices of one training
// generation. Row and column assignments are only valid within this
// generation; a retrain produces fresh index mappings.
//
// Fields are exported for gob persistence; the model is immutable after
// FitCollaborative returns.
type CollaborativeModel struct {
	UserIndex   map[string]int
	ItemIndex   map[string]int
	UserFactors [][]float64
	ItemFactors [][]float64
	Rank        int
	TrainedAt   time.Time
}

// FitCollaborative factorizes the user×product interaction matrix built
// from events with alternating least squares. Interaction strength is the
// summed action weight per (user, product) pair; pairs whose weights cancel
// to zero or below carry no signal and are dropped.
func FitCollaborative(events []behavior.Event, cfg CollaborativeConfig) (*CollaborativeModel, error) {
	if cfg.Factors < 1 {
		cfg.Factors = 1
	}
	if cfg.Iterations < 1 {
		cfg.Iterations = 1
	}

	userIndex := make(map[string]int)
	itemIndex := make(map[string]int)
	weights := make(map[[2]int]float64)

	for _, e := range events {
		u, ok := userIndex[e.UserID]
		if !ok {
			u = len(userIndex)
			userIndex[e.UserID] = u
		}
		p, ok := itemIndex[e.ProductID]
		if !ok {
			p = len(itemIndex)
			itemIndex[e.ProductID] = p
		}
		weights[[2]int{u, p}] += e.Weight
	}

	// Per-user and per-item observed interaction lists.
	userItems := make([]map[int]float64, len(userIndex))
	itemUsers := make([]map[int]float64, len(itemIndex))
	for i := range userItems {
		userItems[i] = make(map[int]float64)
	}
	for i := range itemUsers {
		itemUsers[i] = make(map[int]float64)
	}
	observed := 0
	for key, w := range weights {
		if w <= 0 {
			continue
		}
		u, p := key[0], key[1]
		userItems[u][p] = w
		itemUsers[p][u] = w
		observed++
	}
	if observed == 0 {
		return nil, ErrInsufficientData
	}

	rank := cfg.Factors
	rng := rand.New(rand.NewSource(cfg.Seed))
	userFactors := randomFactors(rng, len(userIndex), rank)
	itemFactors := randomFactors(rng, len(itemIndex), rank)

	for iter := 0; iter < cfg.Iterations; iter++ {
		solveSide(userFactors, itemFactors, userItems, cfg.Regularization)
		solveSide(itemFactors, userFactors, itemUsers, cfg.Regularization)
	}

	return &CollaborativeModel{
		UserIndex:   userIndex,
		ItemIndex:   itemIndex,
		UserFactors: userFactors,
		ItemFactors: itemFactors,
		Rank:        rank,
		TrainedAt:   time.Now().UTC(),
	}, nil
}

// solveSide updates each row of target by regularized least squares over
// its observed interactions against the fixed side.
func solveSide(target, fixed [][]float64, interactions []map[int]float64, reg float64) {
	rank := 0
	if len(fixed) > 0 {
		rank = len(fixed[0])
	}

	for row, obs := range interactions {
		if len(obs) == 0 {
			continue
		}

		// A = F'F + λI over the observed rows, b = F'r
		A := make([][]float64, rank)
		for i := range A {
			A[i] = make([]float64, rank)
			A[i][i] = reg
		}
		b := make([]float64, rank)

		for col, w := range obs {
			f := fixed[col]
			for i := 0; i < rank; i++ {
				b[i] += f[i] * w
				for j := 0; j <= i; j++ {
					A[i][j] += f[i] * f[j]
				}
			}
		}
		// Mirror the lower triangle.
		for i := 0; i < rank; i++ {
			for j := i + 1; j < rank; j++ {
				A[i][j] = A[j][i]
			}
		}

		copy(target[row], solveLinearSystem(A, b))
	}
}

func randomFactors(rng *rand.Rand, rows, rank int) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, rank)
		for j := range out[i] {
			out[i][j] = rng.Float64() * 0.1
		}
	}
	return out
}

// Trained reports whether the model holds any factors.
func (m *CollaborativeModel) Trained() bool {
	return m != nil && len(m.UserFactors) > 0 && len(m.ItemFactors) > 0
}

// UserCount returns the number of users in this generation's factorization.
func (m *CollaborativeModel) UserCount() int {
	if m == nil {
		return 0
	}
	return len(m.UserIndex)
}

// ItemCount returns the number of products in this generation's
// factorization.
func (m *CollaborativeModel) ItemCount() int {
	if m == nil {
		return 0
	}
	return len(m.ItemIndex)
}

// ScoreForUser returns the affinity of userID for each candidate as the dot
// product of their factor rows. Users or products outside this generation
// score zero; that cold-start degradation is compensated by the ranker's
// other signals. Scores are relative within one generation only.
func (m *CollaborativeModel) ScoreForUser(userID string, candidates []string) map[string]float64 {
	scores := make(map[string]float64, len(candidates))
	if m == nil {
		for _, c := range candidates {
			scores[c] = 0
		}
		return scores
	}

	u, known := m.UserIndex[userID]
	for _, c := range candidates {
		if !known {
			scores[c] = 0
			continue
		}
		p, ok := m.ItemIndex[c]
		if !ok {
			scores[c] = 0
			continue
		}
		var dot float64
		uf, pf := m.UserFactors[u], m.ItemFactors[p]
		for i := range uf {
			dot += uf[i] * pf[i]
		}
		scores[c] = dot
	}
	return scores
}
