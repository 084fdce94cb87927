// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

package behavior

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mercata/shoprec/internal/metrics"
)

var (
	ErrMissingUserID    = errors.New("userId is required")
	ErrMissingProductID = errors.New("productId is required")
	ErrUnknownAction    = errors.New("unknown action")
)

// Store is the append-only behavior log plus per-user profiles.
//
// Record mutates shared aggregates under an internal lock but never blocks
// recommendation serving, which reads only published model snapshots. The
// lone live read from serving is Profile, a short lock-and-copy.
type Store struct {
	mu       sync.RWMutex
	events   []Event
	profiles map[string]*Profile
	weights  Weights

	// eventsSinceTraining counts events recorded after the snapshot used
	// by the last successful training run.
	eventsSinceTraining int
}

// NewStore creates an empty store. A nil weights map falls back to the
// default action weights.
func NewStore(weights Weights) *Store {
	if weights == nil {
		weights = DefaultWeights()
	}
	return &Store{
		profiles: make(map[string]*Profile),
		weights:  weights,
	}
}

// Record appends one event and updates the user's profile. It fails only
// on malformed input; unknown users and products are created implicitly.
func (s *Store) Record(userID string, action Action, productID string, meta Metadata) (Event, error) {
	if userID == "" {
		return Event{}, ErrMissingUserID
	}
	if productID == "" {
		return Event{}, ErrMissingProductID
	}
	weight, ok := s.weights[action]
	if !ok {
		return Event{}, ErrUnknownAction
	}

	e := Event{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProductID: productID,
		Action:    action,
		Weight:    weight,
		Timestamp: time.Now().UTC(),
		Metadata:  meta,
	}

	s.mu.Lock()
	s.append(e)
	s.mu.Unlock()

	metrics.RecordEventTracked(string(action))
	metrics.BehaviorEventsSinceTraining.Set(float64(s.EventsSinceTraining()))
	return e, nil
}

// append adds e to the log and profile. Caller holds s.mu.
func (s *Store) append(e Event) {
	s.events = append(s.events, e)
	p, ok := s.profiles[e.UserID]
	if !ok {
		p = newProfile(e.UserID)
		s.profiles[e.UserID] = p
	}
	p.apply(e)
	s.eventsSinceTraining++
}

// Profile returns the user's current aggregate, or an empty default profile
// for a user with no history.
func (s *Store) Profile(userID string) Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return Profile{
			UserID:     userID,
			Categories: map[string]float64{},
			Brands:     map[string]float64{},
		}
	}
	return p.clone()
}

// Snapshot returns a consistent copy of the event log for training.
// Events recorded after the snapshot are not visible to the training run.
func (s *Store) Snapshot() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// EventCount returns the total number of recorded events.
func (s *Store) EventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// UserCount returns the number of distinct users with recorded behavior.
func (s *Store) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

// EventsSinceTraining returns the number of events recorded after the
// snapshot consumed by the last successful training run.
func (s *Store) EventsSinceTraining() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventsSinceTraining
}

// CommitTraining marks a training run that consumed trainedEvents events as
// complete. Events recorded while training ran keep counting toward the
// next retrain threshold.
func (s *Store) CommitTraining(trainedEvents int) {
	s.mu.Lock()
	s.eventsSinceTraining = len(s.events) - trainedEvents
	if s.eventsSinceTraining < 0 {
		s.eventsSinceTraining = 0
	}
	since := s.eventsSinceTraining
	s.mu.Unlock()

	metrics.BehaviorEventsSinceTraining.Set(float64(since))
	metrics.BehaviorUsersTracked.Set(float64(s.UserCount()))
}
