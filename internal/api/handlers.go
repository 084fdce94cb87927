// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mercata/shoprec/internal/behavior"
	"github.com/mercata/shoprec/internal/catalog"
	"github.com/mercata/shoprec/internal/config"
	"github.com/mercata/shoprec/internal/engine"
	"github.com/mercata/shoprec/internal/logging"
	"github.com/mercata/shoprec/internal/models"
	"github.com/mercata/shoprec/internal/validation"
)

const serviceName = "recommendation-engine"

// Server holds the handler dependencies.
type Server struct {
	cfg     *config.Config
	engine  *engine.Engine
	store   *behavior.Store
	index   *catalog.Index
	version string
}

// NewServer creates the HTTP handler set.
func NewServer(cfg *config.Config, eng *engine.Engine, store *behavior.Store, index *catalog.Index, version string) *Server {
	return &Server{
		cfg:     cfg,
		engine:  eng,
		store:   store,
		index:   index,
		version: version,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.HealthResponse{
		Status:  "healthy",
		Service: serviceName,
		Version: s.version,
	})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleReady reports ready once a catalog snapshot is present; behavior
// and models warm up lazily and never gate readiness.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.index.Current().Len() == 0 {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "waiting_for_catalog"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendationsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidJSON, "request body must be valid JSON")
		return
	}
	if verr := validation.Struct(&req); verr != nil {
		respondError(w, http.StatusBadRequest, codeValidationError, verr.Message())
		return
	}

	n := req.NumRecommendations
	if n == 0 {
		n = s.cfg.Engine.Ranker.DefaultN
	}

	ids, algorithm := s.engine.Recommend(req.UserID, req.PurchaseHistory, n)

	respondJSON(w, http.StatusOK, models.RecommendationsResponse{
		Success:            true,
		Recommendations:    ids,
		UserID:             req.UserID,
		Algorithm:          algorithm,
		NumRecommendations: len(ids),
		Timestamp:          time.Now().UTC(),
	})
}

func (s *Server) handleTrackBehavior(w http.ResponseWriter, r *http.Request) {
	var req models.TrackBehaviorRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidJSON, "request body must be valid JSON")
		return
	}
	if verr := validation.Struct(&req); verr != nil {
		respondError(w, http.StatusBadRequest, codeValidationError, verr.Message())
		return
	}

	action, err := behavior.ParseAction(req.Action)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidationError, err.Error())
		return
	}

	meta := behavior.Metadata{}
	if req.Metadata != nil {
		meta = behavior.Metadata{
			Category: req.Metadata.Category,
			Brand:    req.Metadata.Brand,
			Price:    req.Metadata.Price,
		}
	} else if p, ok := s.index.Current().Get(req.ProductID); ok {
		// Fill metadata from the catalog when the caller omits it.
		meta = behavior.Metadata{Category: p.Category, Brand: p.Brand, Price: p.Price}
	}

	event, err := s.store.Record(req.UserID, action, req.ProductID, meta)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidationError, err.Error())
		return
	}

	s.engine.NotifyEvent()

	respondJSON(w, http.StatusOK, models.TrackBehaviorResponse{
		Success: true,
		EventID: event.ID,
	})
}

func (s *Server) handleModelStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, statusResponse(s.engine.Status()))
}

// handleRetrain triggers a synchronous training run. A run already in
// flight is a no-op that reports the in-progress status; a failed run
// keeps the previous generation serving and reports the failure.
func (s *Server) handleRetrain(w http.ResponseWriter, r *http.Request) {
	err := s.engine.Train(r.Context(), "manual")
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, statusResponse(s.engine.Status()))
	case errors.Is(err, engine.ErrTrainingInProgress):
		respondJSON(w, http.StatusAccepted, statusResponse(s.engine.Status()))
	default:
		logging.Ctx(r.Context()).Error().Str("error", sanitizeLogValue(err.Error())).Msg("manual retrain failed")
		respondError(w, http.StatusInternalServerError, codeTrainingFailure, err.Error())
	}
}

func (s *Server) handleUserProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		respondError(w, http.StatusBadRequest, codeValidationError, "userId is required")
		return
	}

	p := s.store.Profile(userID)
	respondJSON(w, http.StatusOK, models.UserProfileResponse{
		UserID:        p.UserID,
		Categories:    p.Categories,
		Brands:        p.Brands,
		TotalWeight:   p.TotalWeight,
		EventCount:    p.EventCount,
		PriceMin:      p.PriceMin,
		PriceMax:      p.PriceMax,
		LastUpdatedAt: p.LastUpdatedAt,
	})
}

func statusResponse(st engine.Status) models.ModelStatusResponse {
	resp := models.ModelStatusResponse{
		ModelVersion:     st.ModelVersion,
		Training:         st.Training,
		LastError:        st.LastError,
		UserCount:        st.UserCount,
		ProductCount:     st.ProductCount,
		BehaviorCount:    st.BehaviorCount,
		CollaborativeOK:  st.CollaborativeOK,
		ContentOK:        st.ContentOK,
		EventsSinceTrain: st.EventsSinceTraining,
		ShouldRetrain:    st.ShouldRetrain,
	}
	if !st.LastTrainedAt.IsZero() {
		t := st.LastTrainedAt
		resp.LastTrainedAt = &t
	}
	return resp
}
