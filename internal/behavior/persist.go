// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

package behavior

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
)

// SaveFile writes the event log to path as JSON. The write goes through a
// temp file and rename so a crash never leaves a truncated log.
func (s *Store) SaveFile(path string) error {
	events := s.Snapshot()

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding behavior log: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating behavior dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing behavior log: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing behavior log: %w", err)
	}
	return nil
}

// LoadFile replays a persisted event log into an empty store. Profiles and
// counters are rebuilt from the events. A missing file is not an error.
func (s *Store) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading behavior log: %w", err)
	}

	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return 0, fmt.Errorf("parsing behavior log %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) > 0 {
		return 0, fmt.Errorf("behavior log already loaded")
	}
	for _, e := range events {
		if e.UserID == "" || e.ProductID == "" {
			continue
		}
		s.append(e)
	}
	return len(s.events), nil
}
