// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestDefaultConstants(t *testing.T) {
	cfg := Default()

	if got := cfg.Engine.ActionWeights.Purchase; got != 5 {
		t.Errorf("purchase weight = %v, want 5", got)
	}
	if got := cfg.Engine.ActionWeights.AddToCart; got != 3 {
		t.Errorf("add_to_cart weight = %v, want 3", got)
	}
	if got := cfg.Engine.ActionWeights.View; got != 1 {
		t.Errorf("view weight = %v, want 1", got)
	}

	b := cfg.Engine.Blend
	if b.Collaborative != 3 || b.Behavior != 2 || b.Content != 1 {
		t.Errorf("blend = %v:%v:%v, want 3:2:1", b.Collaborative, b.Behavior, b.Content)
	}

	if got := cfg.Engine.Training.RetrainThreshold; got != 100 {
		t.Errorf("retrain threshold = %d, want 100", got)
	}
	if got := cfg.Engine.Content.MaxFeatures; got != 1000 {
		t.Errorf("max features = %d, want 1000", got)
	}
	if got := cfg.Engine.Collaborative.Factors; got != 32 {
		t.Errorf("factors = %d, want 32", got)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"negative blend", func(c *Config) { c.Engine.Blend.Content = -1 }},
		{"all-zero blend", func(c *Config) {
			c.Engine.Blend = BlendConfig{}
		}},
		{"zero factors", func(c *Config) { c.Engine.Collaborative.Factors = 0 }},
		{"zero iterations", func(c *Config) { c.Engine.Collaborative.Iterations = 0 }},
		{"zero max features", func(c *Config) { c.Engine.Content.MaxFeatures = 0 }},
		{"max_n below default_n", func(c *Config) { c.Engine.Ranker.MaxN = 1 }},
		{"zero retrain threshold", func(c *Config) { c.Engine.Training.RetrainThreshold = 0 }},
		{"zero training timeout", func(c *Config) { c.Engine.Training.Timeout = 0 }},
		{"sync URL without interval", func(c *Config) {
			c.Catalog.SourceURL = "http://store.local/products"
			c.Catalog.SyncInterval = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shoprec.yaml")
	body := `
server:
  port: 8080
engine:
  training:
    retrain_threshold: 50
  blend:
    collaborative: 4
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Engine.Training.RetrainThreshold != 50 {
		t.Errorf("retrain threshold = %d, want 50", cfg.Engine.Training.RetrainThreshold)
	}
	if cfg.Engine.Blend.Collaborative != 4 {
		t.Errorf("blend.collaborative = %v, want 4", cfg.Engine.Blend.Collaborative)
	}
	// Untouched values keep their defaults.
	if cfg.Engine.Blend.Behavior != 2 {
		t.Errorf("blend.behavior = %v, want default 2", cfg.Engine.Blend.Behavior)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shoprec.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SHOPREC_SERVER_PORT", "9090")
	t.Setenv("SHOPREC_ENGINE_TRAINING_RETRAIN_THRESHOLD", "25")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090 from env", cfg.Server.Port)
	}
	if cfg.Engine.Training.RetrainThreshold != 25 {
		t.Errorf("retrain threshold = %d, want 25 from env", cfg.Engine.Training.RetrainThreshold)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: -1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid port, got nil")
	}
}

func TestEnvKeyTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SHOPREC_SERVER_PORT", "server.port"},
		{"SHOPREC_SERVER_RATE_LIMIT_PER_MINUTE", "server.rate_limit_per_minute"},
		{"SHOPREC_LOGGING_LEVEL", "logging.level"},
		{"SHOPREC_ENGINE_BLEND_COLLABORATIVE", "engine.blend.collaborative"},
		{"SHOPREC_ENGINE_ACTION_WEIGHTS_ADD_TO_CART", "engine.action_weights.add_to_cart"},
		{"SHOPREC_ENGINE_TRAINING_RETRAIN_THRESHOLD", "engine.training.retrain_threshold"},
		{"SHOPREC_CATALOG_SOURCE_URL", "catalog.source_url"},
	}
	for _, tt := range tests {
		if got := envKeyTransform(tt.in); got != tt.want {
			t.Errorf("envKeyTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
