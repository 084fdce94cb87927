// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

package algorithms

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/mercata/shoprec/internal/catalog"
)

// ContentConfig holds TF-IDF vectorization parameters.
type ContentConfig struct {
	// MaxFeatures caps the vocabulary size; the most frequent terms win.
	MaxFeatures int
	// MaxNGram is the largest n-gram length built from the token stream.
	MaxNGram int
}

// ContentModel holds L2-normalized TF-IDF vectors per product. Similarity
// between two products is the cosine of their vectors, in [0, 1].
//
// Fields are exported for gob persistence; the model is immutable after
// FitContent returns.
type ContentModel struct {
	Vocabulary map[string]int
	Vectors    map[string]map[int]float64
	// Order is the catalog insertion position per product id, the
	// deterministic tie-break for equal similarity scores.
	Order     map[string]int
	TrainedAt time.Time
}

// FitContent builds a content model from the catalog snapshot. An empty
// catalog yields an empty, non-nil model.
func FitContent(snap *catalog.Snapshot, cfg ContentConfig) *ContentModel {
	if cfg.MaxNGram < 1 {
		cfg.MaxNGram = 1
	}

	products := snap.Products()
	docs := make([][]string, len(products))
	df := make(map[string]int)
	tfTotal := make(map[string]float64)

	for i, p := range products {
		terms := ngrams(tokenize(p.Descriptor()), cfg.MaxNGram)
		docs[i] = terms

		seen := make(map[string]bool, len(terms))
		for _, t := range terms {
			tfTotal[t]++
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}

	vocab := buildVocabulary(tfTotal, cfg.MaxFeatures)

	n := float64(len(products))
	idf := make([]float64, len(vocab))
	for term, idx := range vocab {
		idf[idx] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	m := &ContentModel{
		Vocabulary: vocab,
		Vectors:    make(map[string]map[int]float64, len(products)),
		Order:      make(map[string]int, len(products)),
		TrainedAt:  time.Now().UTC(),
	}

	for i, p := range products {
		vec := make(map[int]float64)
		for _, t := range docs[i] {
			if idx, ok := vocab[t]; ok {
				vec[idx]++
			}
		}
		for idx := range vec {
			vec[idx] *= idf[idx]
		}
		l2Normalize(vec)
		m.Vectors[p.ID] = vec
		m.Order[p.ID] = i
	}

	return m
}

// Trained reports whether the model holds any product vectors.
func (m *ContentModel) Trained() bool {
	return m != nil && len(m.Vectors) > 0
}

// ProductCount returns the number of vectorized products.
func (m *ContentModel) ProductCount() int {
	if m == nil {
		return 0
	}
	return len(m.Vectors)
}

// Similarity returns the cosine similarity of two products, 0 when either
// id is unknown.
func (m *ContentModel) Similarity(a, b string) float64 {
	if m == nil {
		return 0
	}
	va, ok := m.Vectors[a]
	if !ok {
		return 0
	}
	vb, ok := m.Vectors[b]
	if !ok {
		return 0
	}
	return dotSparse(va, vb)
}

// SimilarProducts returns up to k products most similar to productID in
// descending score order with catalog-order tie-breaks. The query product
// itself and zero-similarity products are excluded. An unknown productID
// returns an empty list.
func (m *ContentModel) SimilarProducts(productID string, k int) []ScoredProduct {
	if m == nil || k <= 0 {
		return nil
	}
	query, ok := m.Vectors[productID]
	if !ok {
		return nil
	}

	scored := make([]ScoredProduct, 0, len(m.Vectors))
	for id, vec := range m.Vectors {
		if id == productID {
			continue
		}
		if s := dotSparse(query, vec); s > 0 {
			scored = append(scored, ScoredProduct{ProductID: id, Score: s})
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return m.Order[scored[i].ProductID] < m.Order[scored[j].ProductID]
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// ScoreAgainstHistory returns the maximum similarity between candidate and
// any history item, 0 when history is empty or nothing is known.
func (m *ContentModel) ScoreAgainstHistory(history []string, candidate string) float64 {
	var best float64
	for _, h := range history {
		if s := m.Similarity(h, candidate); s > best {
			best = s
		}
	}
	return best
}

// buildVocabulary assigns indices to terms, keeping the MaxFeatures most
// frequent ones. Ties break alphabetically so training is deterministic.
func buildVocabulary(tfTotal map[string]float64, maxFeatures int) map[string]int {
	terms := make([]string, 0, len(tfTotal))
	for t := range tfTotal {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if tfTotal[terms[i]] != tfTotal[terms[j]] {
			return tfTotal[terms[i]] > tfTotal[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if maxFeatures > 0 && len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}

	// Index assignment is alphabetical over the kept terms.
	sort.Strings(terms)
	vocab := make(map[string]int, len(terms))
	for i, t := range terms {
		vocab[t] = i
	}
	return vocab
}

// stopwords are common English terms excluded from the vocabulary.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true,
	"has": true, "have": true, "in": true, "is": true, "it": true,
	"its": true, "of": true, "on": true, "or": true, "our": true,
	"that": true, "the": true, "this": true, "to": true, "was": true,
	"were": true, "will": true, "with": true, "you": true, "your": true,
}

// tokenize lowercases text, splits on non-alphanumeric runes, and drops
// stopwords and single-character tokens.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 2 || stopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// ngrams expands tokens into all n-grams of length 1..maxN joined by a
// single space.
func ngrams(tokens []string, maxN int) []string {
	if maxN <= 1 {
		return tokens
	}
	out := make([]string, 0, len(tokens)*maxN)
	for n := 1; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}
