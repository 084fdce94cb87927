// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

// Package config provides layered configuration for Shoprec.
//
// Configuration is resolved in three layers with clear precedence:
//
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file
//  3. Environment variables: override any setting (SHOPREC_ prefix)
//
// The action-weight mapping and hybrid blend ratio are first-class
// configuration: they are the primary tuning surface of the engine and must
// never be hard-coded at call sites.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the service.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
	Data    DataConfig    `koanf:"data"`
	Catalog CatalogConfig `koanf:"catalog"`
	Engine  EngineConfig  `koanf:"engine"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the listen address. Default: 0.0.0.0.
	Host string `koanf:"host"`

	// Port is the listen port. Default: 5000 (matches the storefront's
	// expectation of the recommendation engine).
	Port int `koanf:"port"`

	// ShutdownTimeout bounds graceful shutdown. Default: 10s.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSOrigins lists allowed CORS origins. Default: ["*"].
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitPerMinute is the per-IP request budget. Default: 600.
	RateLimitPerMinute int `koanf:"rate_limit_per_minute"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level. Default: info.
	Level string `koanf:"level"`

	// Format is json or console. Default: json.
	Format string `koanf:"format"`

	// Caller includes file:line in log output. Default: false.
	Caller bool `koanf:"caller"`
}

// DataConfig holds persistence settings.
type DataConfig struct {
	// Dir is the directory for persisted models and behavior data.
	// Default: ./data.
	Dir string `koanf:"dir"`

	// PersistModels enables writing trained models to disk after each
	// successful training run. Default: true.
	PersistModels bool `koanf:"persist_models"`

	// PersistBehavior enables writing the behavior log and profiles to disk.
	// Default: true.
	PersistBehavior bool `koanf:"persist_behavior"`
}

// CatalogConfig holds catalog snapshot and sync settings.
type CatalogConfig struct {
	// SourceURL is the storefront product-collection endpoint. When empty,
	// periodic sync is disabled and the catalog comes from SnapshotPath
	// alone.
	SourceURL string `koanf:"source_url"`

	// SnapshotPath is an optional JSON snapshot file loaded at startup.
	SnapshotPath string `koanf:"snapshot_path"`

	// SyncInterval is how often to pull the product collection.
	// Default: 15m.
	SyncInterval time.Duration `koanf:"sync_interval"`

	// RequestTimeout bounds a single sync request. Default: 30s.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// RequestsPerSecond rate-limits calls to the storefront. Default: 2.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// EngineConfig holds all recommendation engine tuning parameters.
type EngineConfig struct {
	ActionWeights ActionWeightsConfig `koanf:"action_weights"`
	Blend         BlendConfig         `koanf:"blend"`
	Collaborative CollaborativeConfig `koanf:"collaborative"`
	Content       ContentConfig       `koanf:"content"`
	Behavior      BehaviorScoreConfig `koanf:"behavior"`
	Ranker        RankerConfig        `koanf:"ranker"`
	Training      TrainingConfig      `koanf:"training"`
}

// ActionWeightsConfig maps behavior action kinds to interaction weights.
// Purchase outweighs cart outweighs view; removal is a negative adjustment.
type ActionWeightsConfig struct {
	View           float64 `koanf:"view"`
	AddToCart      float64 `koanf:"add_to_cart"`
	Purchase       float64 `koanf:"purchase"`
	Like           float64 `koanf:"like"`
	Share          float64 `koanf:"share"`
	RemoveFromCart float64 `koanf:"remove_from_cart"`
}

// BlendConfig holds the hybrid blending ratio. The documented default is
// 3:2:1: signals learned from many users (collaborative) outrank the
// current user's aggregate preferences (behavior), which outrank
// session-level content similarity.
type BlendConfig struct {
	Collaborative float64 `koanf:"collaborative"`
	Behavior      float64 `koanf:"behavior"`
	Content       float64 `koanf:"content"`
}

// CollaborativeConfig holds matrix-factorization parameters.
type CollaborativeConfig struct {
	// Factors is the rank of the factorization. Default: 32.
	Factors int `koanf:"factors"`

	// Iterations is the number of alternating optimization passes.
	// Default: 15.
	Iterations int `koanf:"iterations"`

	// Regularization is the L2 penalty. Default: 0.05.
	Regularization float64 `koanf:"regularization"`

	// Seed makes factor initialization deterministic. Default: 42.
	Seed int64 `koanf:"seed"`
}

// ContentConfig holds TF-IDF vectorization parameters.
type ContentConfig struct {
	// MaxFeatures caps the vocabulary size. Default: 1000.
	MaxFeatures int `koanf:"max_features"`

	// MaxNGram is the largest n-gram length. Default: 2.
	MaxNGram int `koanf:"max_ngram"`
}

// BehaviorScoreConfig weights the components of the behavior sub-score.
type BehaviorScoreConfig struct {
	// CategoryWeight scales the category bucket match. Default: 0.4.
	CategoryWeight float64 `koanf:"category_weight"`

	// BrandWeight scales the brand bucket match. Default: 0.3.
	BrandWeight float64 `koanf:"brand_weight"`

	// PriceRangeBonus is added when the candidate falls inside the user's
	// observed price range. Default: 2.0.
	PriceRangeBonus float64 `koanf:"price_range_bonus"`
}

// RankerConfig holds candidate-pool and result limits.
type RankerConfig struct {
	// DefaultN is the result count when the caller omits one. Default: 5.
	DefaultN int `koanf:"default_n"`

	// MaxN caps the result count. Default: 20.
	MaxN int `koanf:"max_n"`

	// SimilarPerHistoryItem is how many content neighbors each purchase
	// history item contributes to the candidate pool. Default: 25.
	SimilarPerHistoryItem int `koanf:"similar_per_history_item"`

	// BasePoolSize is the size of the popularity base pool unioned into the
	// candidate set when history is supplied. Default: 100.
	BasePoolSize int `koanf:"base_pool_size"`

	// HistoryTail is how many of the most recent history items are used for
	// content expansion. Default: 3.
	HistoryTail int `koanf:"history_tail"`
}

// TrainingConfig holds retraining schedule parameters.
type TrainingConfig struct {
	// RetrainThreshold is the events-since-training count that triggers an
	// automatic background retrain. Default: 100.
	RetrainThreshold int `koanf:"retrain_threshold"`

	// Interval is the periodic retraining cadence. Default: 24h.
	Interval time.Duration `koanf:"interval"`

	// Timeout bounds one training run. Default: 10m.
	Timeout time.Duration `koanf:"timeout"`

	// MinEvents is the minimum behavior-event count required to train the
	// collaborative model. Default: 2.
	MinEvents int `koanf:"min_events"`

	// TrainOnStartup trains immediately when the service starts.
	// Default: true.
	TrainOnStartup bool `koanf:"train_on_startup"`
}

// Default returns a Config with production defaults. The numeric defaults
// for action weights, the blend ratio, and the retrain threshold are the
// documented design constants of the engine.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               5000,
			ShutdownTimeout:    10 * time.Second,
			CORSOrigins:        []string{"*"},
			RateLimitPerMinute: 600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Data: DataConfig{
			Dir:             "./data",
			PersistModels:   true,
			PersistBehavior: true,
		},
		Catalog: CatalogConfig{
			SyncInterval:      15 * time.Minute,
			RequestTimeout:    30 * time.Second,
			RequestsPerSecond: 2,
		},
		Engine: EngineConfig{
			ActionWeights: ActionWeightsConfig{
				View:           1,
				AddToCart:      3,
				Purchase:       5,
				Like:           2,
				Share:          2,
				RemoveFromCart: -3,
			},
			Blend: BlendConfig{
				Collaborative: 3,
				Behavior:      2,
				Content:       1,
			},
			Collaborative: CollaborativeConfig{
				Factors:        32,
				Iterations:     15,
				Regularization: 0.05,
				Seed:           42,
			},
			Content: ContentConfig{
				MaxFeatures: 1000,
				MaxNGram:    2,
			},
			Behavior: BehaviorScoreConfig{
				CategoryWeight:  0.4,
				BrandWeight:     0.3,
				PriceRangeBonus: 2.0,
			},
			Ranker: RankerConfig{
				DefaultN:              5,
				MaxN:                  20,
				SimilarPerHistoryItem: 25,
				BasePoolSize:          100,
				HistoryTail:           3,
			},
			Training: TrainingConfig{
				RetrainThreshold: 100,
				Interval:         24 * time.Hour,
				Timeout:          10 * time.Minute,
				MinEvents:        2,
				TrainOnStartup:   true,
			},
		},
	}
}

// Validate checks the configuration for errors.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.RateLimitPerMinute < 1 {
		return fmt.Errorf("server.rate_limit_per_minute must be positive, got %d", c.Server.RateLimitPerMinute)
	}

	e := &c.Engine
	if e.Blend.Collaborative < 0 || e.Blend.Behavior < 0 || e.Blend.Content < 0 {
		return fmt.Errorf("engine.blend weights must be non-negative")
	}
	if e.Blend.Collaborative+e.Blend.Behavior+e.Blend.Content == 0 {
		return fmt.Errorf("engine.blend weights must not all be zero")
	}
	if e.Collaborative.Factors < 1 {
		return fmt.Errorf("engine.collaborative.factors must be positive, got %d", e.Collaborative.Factors)
	}
	if e.Collaborative.Iterations < 1 {
		return fmt.Errorf("engine.collaborative.iterations must be positive, got %d", e.Collaborative.Iterations)
	}
	if e.Collaborative.Regularization < 0 {
		return fmt.Errorf("engine.collaborative.regularization must be non-negative, got %f", e.Collaborative.Regularization)
	}
	if e.Content.MaxFeatures < 1 {
		return fmt.Errorf("engine.content.max_features must be positive, got %d", e.Content.MaxFeatures)
	}
	if e.Content.MaxNGram < 1 {
		return fmt.Errorf("engine.content.max_ngram must be positive, got %d", e.Content.MaxNGram)
	}
	if e.Ranker.DefaultN < 1 {
		return fmt.Errorf("engine.ranker.default_n must be positive, got %d", e.Ranker.DefaultN)
	}
	if e.Ranker.MaxN < e.Ranker.DefaultN {
		return fmt.Errorf("engine.ranker.max_n must be >= default_n, got %d < %d", e.Ranker.MaxN, e.Ranker.DefaultN)
	}
	if e.Training.RetrainThreshold < 1 {
		return fmt.Errorf("engine.training.retrain_threshold must be positive, got %d", e.Training.RetrainThreshold)
	}
	if e.Training.Timeout <= 0 {
		return fmt.Errorf("engine.training.timeout must be positive, got %s", e.Training.Timeout)
	}

	if c.Catalog.SourceURL != "" && c.Catalog.SyncInterval <= 0 {
		return fmt.Errorf("catalog.sync_interval must be positive when catalog.source_url is set")
	}
	if c.Catalog.RequestsPerSecond <= 0 {
		return fmt.Errorf("catalog.requests_per_second must be positive, got %f", c.Catalog.RequestsPerSecond)
	}

	return nil
}
