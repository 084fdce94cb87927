// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

// Package models defines the JSON request and response shapes of the HTTP
// boundary consumed by the storefront.
package models

import "time"

// ErrorResponse is the envelope for all error responses.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// RecommendationsRequest is the body of POST /recommendations.
type RecommendationsRequest struct {
	UserID             string   `json:"userId" validate:"required,min=1,max=128"`
	PurchaseHistory    []string `json:"purchaseHistory" validate:"omitempty,max=500,dive,min=1,max=128"`
	NumRecommendations int      `json:"numRecommendations" validate:"omitempty,gte=0"`
}

// RecommendationsResponse is returned by POST /recommendations.
type RecommendationsResponse struct {
	Success            bool      `json:"success"`
	Recommendations    []string  `json:"recommendations"`
	UserID             string    `json:"userId"`
	Algorithm          string    `json:"algorithm"`
	NumRecommendations int       `json:"numRecommendations"`
	Timestamp          time.Time `json:"timestamp"`
}

// EventMetadata is the optional product metadata attached to a tracked
// behavior event. It is copied from the product at event time so profile
// aggregation never needs a catalog join.
type EventMetadata struct {
	Category string  `json:"category,omitempty"`
	Brand    string  `json:"brand,omitempty"`
	Price    float64 `json:"price,omitempty"`
}

// TrackBehaviorRequest is the body of POST /track-behavior.
type TrackBehaviorRequest struct {
	UserID    string         `json:"userId" validate:"required,min=1,max=128"`
	ProductID string         `json:"productId" validate:"required,min=1,max=128"`
	Action    string         `json:"action" validate:"required,oneof=view add_to_cart purchase like share remove_from_cart"`
	Metadata  *EventMetadata `json:"metadata,omitempty"`
}

// TrackBehaviorResponse is returned by POST /track-behavior.
type TrackBehaviorResponse struct {
	Success bool   `json:"success"`
	EventID string `json:"eventId"`
}

// ModelStatusResponse is returned by GET /model-status and as the body of
// POST /retrain-models.
type ModelStatusResponse struct {
	ModelVersion     uint64     `json:"modelVersion"`
	Training         bool       `json:"training"`
	LastTrainedAt    *time.Time `json:"lastTrainedAt,omitempty"`
	LastError        string     `json:"lastError,omitempty"`
	UserCount        int        `json:"userCount"`
	ProductCount     int        `json:"productCount"`
	BehaviorCount    int        `json:"totalBehaviorCount"`
	CollaborativeOK  bool       `json:"collaborativeTrained"`
	ContentOK        bool       `json:"contentTrained"`
	EventsSinceTrain int        `json:"eventsSinceTraining"`
	ShouldRetrain    bool       `json:"shouldRetrain"`
}

// UserProfileResponse is returned by GET /user-profile/{userId}.
type UserProfileResponse struct {
	UserID        string             `json:"userId"`
	Categories    map[string]float64 `json:"categories"`
	Brands        map[string]float64 `json:"brands"`
	TotalWeight   float64            `json:"totalWeight"`
	EventCount    int                `json:"eventCount"`
	PriceMin      float64            `json:"priceMin"`
	PriceMax      float64            `json:"priceMax"`
	LastUpdatedAt time.Time          `json:"lastUpdatedAt"`
}
