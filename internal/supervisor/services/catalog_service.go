// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

package services

import (
	"context"

	"github.com/mercata/shoprec/internal/catalog"
)

// CatalogSyncService supervises the periodic catalog pull from the
// storefront.
type CatalogSyncService struct {
	syncer *catalog.Syncer
}

// NewCatalogSyncService wraps syncer.
func NewCatalogSyncService(syncer *catalog.Syncer) *CatalogSyncService {
	return &CatalogSyncService{syncer: syncer}
}

// Serve implements suture.Service.
func (s *CatalogSyncService) Serve(ctx context.Context) error {
	return s.syncer.Run(ctx)
}

// String identifies the service in supervisor logs.
func (s *CatalogSyncService) String() string {
	return "catalog-sync"
}
