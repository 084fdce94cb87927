// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/mercata/shoprec/internal/logging"
	"github.com/mercata/shoprec/internal/metrics"
)

// maxSyncBody caps the response size read from the storefront.
const maxSyncBody = 32 << 20 // 32 MiB

// SyncConfig configures a Syncer.
type SyncConfig struct {
	SourceURL         string
	Interval          time.Duration
	RequestTimeout    time.Duration
	RequestsPerSecond float64
}

// Syncer pulls the product collection from the storefront on a schedule and
// swaps the result into the Index. The storefront is an external
// collaborator, so calls go through a circuit breaker and a rate limiter.
type Syncer struct {
	cfg     SyncConfig
	index   *Index
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]Product]
	limiter *rate.Limiter
}

// NewSyncer creates a Syncer for the given index.
func NewSyncer(cfg SyncConfig, index *Index) *Syncer {
	cbName := "catalog-sync"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]Product](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("component", "catalog").
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("catalog sync circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}

	return &Syncer{
		cfg:     cfg,
		index:   index,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		breaker: cb,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Run syncs once immediately, then on every interval tick until ctx is
// canceled. Sync failures are logged and recorded; the previous snapshot
// stays active.
func (s *Syncer) Run(ctx context.Context) error {
	if s.cfg.SourceURL == "" {
		<-ctx.Done()
		return ctx.Err()
	}

	if err := s.SyncOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Warn().Str("component", "catalog").Err(err).Msg("initial catalog sync failed")
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.SyncOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Warn().Str("component", "catalog").Err(err).Msg("catalog sync failed")
			}
		}
	}
}

// SyncOnce fetches the product collection and swaps in a new snapshot.
func (s *Syncer) SyncOnce(ctx context.Context) error {
	start := time.Now()

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	products, err := s.breaker.Execute(func() ([]Product, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		metrics.RecordCatalogSync(time.Since(start), 0, err)
		return err
	}

	snap := NewSnapshot(products)
	s.index.Swap(snap)
	metrics.RecordCatalogSync(time.Since(start), snap.Len(), nil)

	logging.Info().
		Str("component", "catalog").
		Int("products", snap.Len()).
		Uint64("snapshot_version", snap.Version()).
		Dur("duration", time.Since(start)).
		Msg("catalog snapshot refreshed")
	return nil
}

func (s *Syncer) fetch(ctx context.Context) ([]Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.SourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog source returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSyncBody))
	if err != nil {
		return nil, fmt.Errorf("reading catalog response: %w", err)
	}

	var products []Product
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, fmt.Errorf("parsing catalog response: %w", err)
	}
	return products, nil
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateOpen:
		return 1
	default:
		return 2
	}
}
