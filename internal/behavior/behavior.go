// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

// Package behavior implements the append-only behavior event log and the
// per-user preference profiles derived from it.
//
// Events are never mutated or rejected for unknown entities: a user or
// product seen for the first time is created implicitly. Profiles are
// running aggregates maintained in O(1) per event and always
// reconstructable by replaying the log.
package behavior

import (
	"fmt"
	"time"
)

// Action is a tracked interaction kind.
type Action string

const (
	ActionView           Action = "view"
	ActionAddToCart      Action = "add_to_cart"
	ActionPurchase       Action = "purchase"
	ActionLike           Action = "like"
	ActionShare          Action = "share"
	ActionRemoveFromCart Action = "remove_from_cart"
)

// ParseAction validates a wire-format action string.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionView, ActionAddToCart, ActionPurchase, ActionLike, ActionShare, ActionRemoveFromCart:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// Weights maps actions to interaction weights. Purchase outweighs cart
// outweighs view; removal carries a negative weight.
type Weights map[Action]float64

// DefaultWeights returns the documented default action weights.
func DefaultWeights() Weights {
	return Weights{
		ActionView:           1,
		ActionAddToCart:      3,
		ActionPurchase:       5,
		ActionLike:           2,
		ActionShare:          2,
		ActionRemoveFromCart: -3,
	}
}

// Metadata is product context copied onto an event at tracking time so
// profile aggregation never needs a catalog join.
type Metadata struct {
	Category string  `json:"category,omitempty"`
	Brand    string  `json:"brand,omitempty"`
	Price    float64 `json:"price,omitempty"`
}

// Event is one recorded interaction. Immutable once appended.
type Event struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ProductID string    `json:"productId"`
	Action    Action    `json:"action"`
	Weight    float64   `json:"weight"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  Metadata  `json:"metadata,omitempty"`
}
