// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

package behavior

import "time"

// Profile is a user's derived preference aggregate: weighted counts per
// category and brand, the observed price range, and the total interaction
// weight. It is recomputed incrementally as events arrive.
type Profile struct {
	UserID        string             `json:"userId"`
	Categories    map[string]float64 `json:"categories"`
	Brands        map[string]float64 `json:"brands"`
	TotalWeight   float64            `json:"totalWeight"`
	EventCount    int                `json:"eventCount"`
	PriceMin      float64            `json:"priceMin"`
	PriceMax      float64            `json:"priceMax"`
	LastUpdatedAt time.Time          `json:"lastUpdatedAt"`

	priceSeen bool
}

func newProfile(userID string) *Profile {
	return &Profile{
		UserID:     userID,
		Categories: make(map[string]float64),
		Brands:     make(map[string]float64),
	}
}

// apply folds one event into the aggregate.
func (p *Profile) apply(e Event) {
	if e.Metadata.Category != "" {
		p.Categories[e.Metadata.Category] += e.Weight
	}
	if e.Metadata.Brand != "" {
		p.Brands[e.Metadata.Brand] += e.Weight
	}
	if e.Metadata.Price > 0 {
		if !p.priceSeen || e.Metadata.Price < p.PriceMin {
			p.PriceMin = e.Metadata.Price
		}
		if !p.priceSeen || e.Metadata.Price > p.PriceMax {
			p.PriceMax = e.Metadata.Price
		}
		p.priceSeen = true
	}
	p.TotalWeight += e.Weight
	p.EventCount++
	p.LastUpdatedAt = e.Timestamp
}

// clone returns an independent copy safe to hand to callers.
func (p *Profile) clone() Profile {
	out := *p
	out.Categories = make(map[string]float64, len(p.Categories))
	for k, v := range p.Categories {
		out.Categories[k] = v
	}
	out.Brands = make(map[string]float64, len(p.Brands))
	for k, v := range p.Brands {
		out.Brands[k] = v
	}
	return out
}

// InPriceRange reports whether price falls inside the user's observed
// price range. Always false before any priced event was seen.
func (p Profile) InPriceRange(price float64) bool {
	return p.priceSeen && price >= p.PriceMin && price <= p.PriceMax
}

// HasHistory reports whether any event has been recorded for the user.
func (p Profile) HasHistory() bool {
	return p.EventCount > 0
}
