// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix is the environment variable prefix for all settings.
// SHOPREC_SERVER_PORT=8080 overrides server.port.
const envPrefix = "SHOPREC_"

// Load builds the configuration from three layers: built-in defaults, an
// optional YAML file, and environment variables. Later layers win.
//
// The config file path is taken from configPath when non-empty, otherwise
// from SHOPREC_CONFIG, otherwise the first of ./shoprec.yaml or
// /etc/shoprec/shoprec.yaml that exists. A missing file is not an error;
// an unreadable or malformed file is.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	path := resolveConfigPath(configPath)
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// envKeyTransform maps SHOPREC_ENGINE_TRAINING_RETRAIN_THRESHOLD to
// engine.training.retrain_threshold. Single underscores separate path
// segments only when the resulting prefix names a known section; compound
// leaf keys keep their underscores.
func envKeyTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.Split(s, "_")

	// Greedily join leading parts into known section names, leaving the
	// remainder as a single underscore-joined leaf key.
	sections := map[string]bool{
		"server": true, "logging": true, "data": true, "catalog": true,
		"engine": true,
	}
	nested := map[string]bool{
		"action_weights": true, "blend": true, "collaborative": true,
		"content": true, "behavior": true, "ranker": true, "training": true,
	}

	var key []string
	i := 0
	if i < len(parts) && sections[parts[i]] {
		key = append(key, parts[i])
		i++
		if parts[0] == "engine" && i < len(parts) {
			if nested[parts[i]] {
				key = append(key, parts[i])
				i++
			} else if i+1 < len(parts) && nested[parts[i]+"_"+parts[i+1]] {
				key = append(key, parts[i]+"_"+parts[i+1])
				i += 2
			}
		}
	}
	if i < len(parts) {
		key = append(key, strings.Join(parts[i:], "_"))
	}
	return strings.Join(key, ".")
}

func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv("SHOPREC_CONFIG"); p != "" {
		return p
	}
	for _, p := range []string{"./shoprec.yaml", "/etc/shoprec/shoprec.yaml"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
