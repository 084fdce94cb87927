// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

// Package algorithms implements the scoring models of the hybrid engine.
//
//   - Content: TF-IDF vectors over product descriptors with cosine
//     similarity
//   - Collaborative: low-rank factorization of the user×product
//     interaction matrix via alternating least squares
//   - Popularity: accumulated-weight baseline used as the cold-start
//     fallback
//
// # Thread Safety
//
// Models are fitted once by their constructor and immutable afterwards.
// The engine publishes a fitted model set through an atomic pointer, so
// concurrent reads need no locking.
package algorithms

import "math"

// ScoredProduct pairs a product id with a similarity or affinity score.
type ScoredProduct struct {
	ProductID string  `json:"productId"`
	Score     float64 `json:"score"`
}

// dotSparse computes the dot product of two sparse vectors, iterating the
// smaller one.
func dotSparse(a, b map[int]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for i, va := range a {
		if vb, ok := b[i]; ok {
			sum += va * vb
		}
	}
	return sum
}

// l2Normalize scales v to unit length in place. A zero vector is left
// unchanged.
func l2Normalize(v map[int]float64) {
	var sq float64
	for _, x := range v {
		sq += x * x
	}
	if sq == 0 {
		return
	}
	norm := math.Sqrt(sq)
	for i, x := range v {
		v[i] = x / norm
	}
}

// solveLinearSystem solves A·x = b for symmetric positive definite A via
// Cholesky decomposition.
func solveLinearSystem(A [][]float64, b []float64) []float64 {
	n := len(b)

	// A = L * L'
	L := make([][]float64, n)
	for i := range L {
		L[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := A[i][j]
			for k := 0; k < j; k++ {
				sum -= L[i][k] * L[j][k]
			}

			if i == j {
				if sum <= 0 {
					// Not positive definite, nudge the diagonal
					sum = 1e-10
				}
				L[i][j] = math.Sqrt(sum)
			} else if L[j][j] != 0 {
				L[i][j] = sum / L[j][j]
			}
		}
	}

	// L * z = b (forward substitution)
	z := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := b[i]
		for j := 0; j < i; j++ {
			sum -= L[i][j] * z[j]
		}
		if L[i][i] != 0 {
			z[i] = sum / L[i][i]
		}
	}

	// L' * x = z (back substitution)
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := z[i]
		for j := i + 1; j < n; j++ {
			sum -= L[j][i] * x[j]
		}
		if L[i][i] != 0 {
			x[i] = sum / L[i][i]
		}
	}

	return x
}
