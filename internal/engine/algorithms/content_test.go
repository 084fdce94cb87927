// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

package algorithms

import (
	"math"
	"reflect"
	"testing"

	"github.com/mercata/shoprec/internal/catalog"
)

func contentCatalog() *catalog.Snapshot {
	return catalog.NewSnapshot([]catalog.Product{
		{ID: "A", Name: "Wireless Headphones", Description: "bluetooth wireless audio", Category: "electronics", Brand: "Sonic"},
		{ID: "B", Name: "Bluetooth Speaker", Description: "portable bluetooth wireless audio", Category: "electronics", Brand: "Sonic"},
		{ID: "C", Name: "Mechanical Keyboard", Description: "clicky gaming keyboard", Category: "gaming", Brand: "KeyPro"},
		{ID: "D", Name: "Gaming Mouse", Description: "precision gaming mouse", Category: "gaming", Brand: "KeyPro"},
	})
}

func defaultContentConfig() ContentConfig {
	return ContentConfig{MaxFeatures: 1000, MaxNGram: 2}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"lowercases and splits", "Wireless-Headphones, Premium!", []string{"wireless", "headphones", "premium"}},
		{"drops stopwords", "the best speaker for you", []string{"best", "speaker"}},
		{"drops single chars", "a b cd", []string{"cd"}},
		{"empty input", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenize(tt.in)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNgrams(t *testing.T) {
	got := ngrams([]string{"wireless", "bluetooth", "audio"}, 2)
	want := []string{
		"wireless", "bluetooth", "audio",
		"wireless bluetooth", "bluetooth audio",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ngrams = %v, want %v", got, want)
	}
}

func TestFitContentEmptyCatalog(t *testing.T) {
	m := FitContent(catalog.NewSnapshot(nil), defaultContentConfig())
	if m == nil {
		t.Fatal("model must be non-nil for an empty catalog")
	}
	if m.Trained() {
		t.Error("empty model should not report trained")
	}
	if got := m.SimilarProducts("A", 5); got != nil {
		t.Errorf("SimilarProducts on empty model = %v, want nil", got)
	}
}

func TestSimilarityRange(t *testing.T) {
	m := FitContent(contentCatalog(), defaultContentConfig())

	for _, a := range []string{"A", "B", "C", "D"} {
		if got := m.Similarity(a, a); math.Abs(got-1) > 1e-9 {
			t.Errorf("Similarity(%s, %s) = %v, want 1", a, a, got)
		}
		for _, b := range []string{"A", "B", "C", "D"} {
			s := m.Similarity(a, b)
			if s < -1e-9 || s > 1+1e-9 {
				t.Errorf("Similarity(%s, %s) = %v, out of [0, 1]", a, b, s)
			}
		}
	}
}

func TestSimilarProductsExcludesQueryAndUnknown(t *testing.T) {
	m := FitContent(contentCatalog(), defaultContentConfig())

	got := m.SimilarProducts("A", 10)
	if len(got) == 0 {
		t.Fatal("expected neighbors for A")
	}
	for _, sp := range got {
		if sp.ProductID == "A" {
			t.Error("query product must not appear in its own neighbors")
		}
	}

	if got := m.SimilarProducts("missing", 10); len(got) != 0 {
		t.Errorf("unknown product id should return empty list, got %v", got)
	}
}

func TestSimilarProductsMonotonicScores(t *testing.T) {
	m := FitContent(contentCatalog(), defaultContentConfig())

	got := m.SimilarProducts("A", 10)
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("scores not monotonically non-increasing at %d: %v > %v", i, got[i].Score, got[i-1].Score)
		}
	}
}

func TestSimilarProductsFavorsSharedTerms(t *testing.T) {
	m := FitContent(contentCatalog(), defaultContentConfig())

	// B shares "bluetooth wireless audio" with A; C and D do not.
	got := m.SimilarProducts("A", 1)
	if len(got) != 1 || got[0].ProductID != "B" {
		t.Errorf("nearest neighbor of A = %v, want B", got)
	}
}

func TestSimilarProductsRespectsK(t *testing.T) {
	m := FitContent(contentCatalog(), defaultContentConfig())
	if got := m.SimilarProducts("C", 1); len(got) > 1 {
		t.Errorf("len = %d, want <= 1", len(got))
	}
	if got := m.SimilarProducts("C", 0); got != nil {
		t.Errorf("k=0 should return nil, got %v", got)
	}
}

func TestScoreAgainstHistory(t *testing.T) {
	m := FitContent(contentCatalog(), defaultContentConfig())

	if got := m.ScoreAgainstHistory(nil, "B"); got != 0 {
		t.Errorf("empty history score = %v, want 0", got)
	}

	withA := m.ScoreAgainstHistory([]string{"A"}, "B")
	if withA <= 0 {
		t.Errorf("score against similar history = %v, want > 0", withA)
	}

	// Max over history: adding an unrelated item must not lower the score.
	both := m.ScoreAgainstHistory([]string{"A", "C"}, "B")
	if both < withA {
		t.Errorf("max-over-history score dropped: %v < %v", both, withA)
	}
}

func TestBuildVocabularyCapsFeatures(t *testing.T) {
	tf := map[string]float64{"audio": 5, "bluetooth": 4, "gaming": 3, "keyboard": 2, "mouse": 1}
	vocab := buildVocabulary(tf, 3)
	if len(vocab) != 3 {
		t.Fatalf("vocab size = %d, want 3", len(vocab))
	}
	for _, term := range []string{"audio", "bluetooth", "gaming"} {
		if _, ok := vocab[term]; !ok {
			t.Errorf("expected %q in capped vocabulary", term)
		}
	}
}

func TestFitContentDeterministic(t *testing.T) {
	a := FitContent(contentCatalog(), defaultContentConfig())
	b := FitContent(contentCatalog(), defaultContentConfig())

	if !reflect.DeepEqual(a.Vocabulary, b.Vocabulary) {
		t.Error("vocabulary differs between identical fits")
	}
	ra := a.SimilarProducts("A", 3)
	rb := b.SimilarProducts("A", 3)
	if !reflect.DeepEqual(ra, rb) {
		t.Errorf("neighbor lists differ: %v vs %v", ra, rb)
	}
}
