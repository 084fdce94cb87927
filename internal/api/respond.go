// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

// Package api implements the HTTP JSON boundary consumed by the
// storefront.
package api

import (
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/mercata/shoprec/internal/logging"
	"github.com/mercata/shoprec/internal/models"
)

// Error codes surfaced in the error envelope.
const (
	codeValidationError  = "VALIDATION_ERROR"
	codeInvalidJSON      = "INVALID_JSON"
	codeTrainingFailure  = "TRAINING_FAILURE"
	codeInternalError    = "INTERNAL_ERROR"
	codeNotFound         = "NOT_FOUND"
	codeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	codeRateLimited      = "RATE_LIMITED"
)

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("failed to write JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, models.ErrorResponse{
		Success: false,
		Error:   code,
		Message: message,
	})
}

// decodeJSON reads a request body into dst with a size cap.
func decodeJSON(r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(dst)
}

// sanitizeLogValue strips control characters from untrusted values before
// they reach the log.
func sanitizeLogValue(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}
