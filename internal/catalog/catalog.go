// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

// Package catalog holds the product catalog snapshot used for content
// feature extraction and candidate generation.
//
// A Snapshot is immutable once built. The Index publishes the current
// snapshot through an atomic pointer so readers never observe a partially
// updated catalog; a refresh builds a complete new snapshot and swaps it in.
package catalog

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	json "github.com/goccy/go-json"
)

// Product is one catalog record. Products are immutable once indexed and
// re-indexed wholesale on catalog refresh.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Brand       string  `json:"brand"`
	Price       float64 `json:"price"`
}

// Descriptor returns the text used for content vectorization: name,
// description, brand and category concatenated.
func (p Product) Descriptor() string {
	return strings.TrimSpace(strings.Join([]string{p.Name, p.Description, p.Brand, p.Category}, " "))
}

// Snapshot is an immutable point-in-time view of the catalog. Products keep
// their insertion order, which is the deterministic tie-break order for all
// ranking in the engine.
type Snapshot struct {
	products []Product
	index    map[string]int
	version  uint64
}

var snapshotVersion atomic.Uint64

// NewSnapshot builds a snapshot from products in order. Duplicate ids keep
// the first occurrence's position with the last occurrence's fields.
func NewSnapshot(products []Product) *Snapshot {
	s := &Snapshot{
		products: make([]Product, 0, len(products)),
		index:    make(map[string]int, len(products)),
		version:  snapshotVersion.Add(1),
	}
	for _, p := range products {
		if p.ID == "" {
			continue
		}
		if i, ok := s.index[p.ID]; ok {
			s.products[i] = p
			continue
		}
		s.index[p.ID] = len(s.products)
		s.products = append(s.products, p)
	}
	return s
}

// Len returns the number of products.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.products)
}

// Version returns the snapshot's monotonic version.
func (s *Snapshot) Version() uint64 {
	if s == nil {
		return 0
	}
	return s.version
}

// Get returns the product with the given id.
func (s *Snapshot) Get(id string) (Product, bool) {
	if s == nil {
		return Product{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return Product{}, false
	}
	return s.products[i], true
}

// Contains reports whether id is in the snapshot.
func (s *Snapshot) Contains(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[id]
	return ok
}

// Order returns the insertion position of id, or -1 when unknown. Lower
// positions win score ties.
func (s *Snapshot) Order(id string) int {
	if s == nil {
		return -1
	}
	i, ok := s.index[id]
	if !ok {
		return -1
	}
	return i
}

// Products returns the products in insertion order. Callers must not
// modify the returned slice.
func (s *Snapshot) Products() []Product {
	if s == nil {
		return nil
	}
	return s.products
}

// IDs returns the product ids in insertion order.
func (s *Snapshot) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, len(s.products))
	for i, p := range s.products {
		ids[i] = p.ID
	}
	return ids
}

// Index publishes the current catalog snapshot.
type Index struct {
	current atomic.Pointer[Snapshot]
}

// NewIndex returns an Index holding an empty snapshot.
func NewIndex() *Index {
	idx := &Index{}
	idx.current.Store(NewSnapshot(nil))
	return idx
}

// Current returns the active snapshot. Never nil.
func (ix *Index) Current() *Snapshot {
	return ix.current.Load()
}

// Swap atomically replaces the active snapshot.
func (ix *Index) Swap(s *Snapshot) {
	if s == nil {
		s = NewSnapshot(nil)
	}
	ix.current.Store(s)
}

// LoadFile reads a JSON array of products from path and returns a snapshot.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("parsing catalog file %s: %w", path, err)
	}
	return NewSnapshot(products), nil
}
