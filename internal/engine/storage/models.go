// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

// Package storage persists trained model generations to disk.
//
// Each model is gob-encoded, gzip-compressed, and written with metadata
// including a SHA-256 checksum verified on load. Files are named
// {model}_v{version}.gob.gz so a restart can reload the newest complete
// generation without retraining.
package storage

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ModelMetadata describes one stored model file.
type ModelMetadata struct {
	Name          string    `json:"name"`
	Version       uint64    `json:"version"`
	TrainedAt     time.Time `json:"trainedAt"`
	SavedAt       time.Time `json:"savedAt"`
	EventCount    int       `json:"eventCount"`
	UserCount     int       `json:"userCount"`
	ProductCount  int       `json:"productCount"`
	Checksum      string    `json:"checksum"`
	SizeBytes     int64     `json:"sizeBytes"`
	TrainingMilli int64     `json:"trainingDurationMs"`
}

// storedFile is the on-disk layout: metadata plus compressed gob payload.
type storedFile struct {
	Metadata       ModelMetadata
	CompressedData []byte
}

// Store manages persisted model files under one directory.
type Store struct {
	baseDir string
	mu      sync.RWMutex

	// latest version per model name
	versions map[string]uint64
}

// NewStore opens (creating if needed) a model store at baseDir and scans it
// for existing model files.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create model directory: %w", err)
	}

	s := &Store{
		baseDir:  baseDir,
		versions: make(map[string]uint64),
	}
	if err := s.scan(); err != nil {
		return nil, fmt.Errorf("scan model directory: %w", err)
	}
	return s, nil
}

func (s *Store) scan() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := strings.CutSuffix(entry.Name(), ".gob.gz")
		if !ok {
			continue
		}
		modelName, version := parseModelFilename(name)
		if modelName == "" {
			continue
		}
		if current, seen := s.versions[modelName]; !seen || version > current {
			s.versions[modelName] = version
		}
	}
	return nil
}

// parseModelFilename splits "content_v3" into ("content", 3).
func parseModelFilename(name string) (string, uint64) {
	idx := strings.LastIndex(name, "_v")
	if idx < 1 {
		return "", 0
	}
	version, err := strconv.ParseUint(name[idx+2:], 10, 64)
	if err != nil {
		return "", 0
	}
	return name[:idx], version
}

// Save persists model under name at version. meta's checksum, size, and
// save time are filled in here.
func (s *Store) Save(name string, version uint64, model interface{}, meta ModelMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(model); err != nil {
		return fmt.Errorf("encode model %s: %w", name, err)
	}
	raw := buf.Bytes()

	hash := sha256.Sum256(raw)
	meta.Checksum = hex.EncodeToString(hash[:])

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw); err != nil {
		return fmt.Errorf("compress model %s: %w", name, err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	meta.Name = name
	meta.Version = version
	meta.SavedAt = time.Now().UTC()
	meta.SizeBytes = int64(compressed.Len())

	path := s.modelPath(name, version)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	defer func() { _ = f.Close() }()

	sf := storedFile{Metadata: meta, CompressedData: compressed.Bytes()}
	if err := gob.NewEncoder(f).Encode(sf); err != nil {
		return fmt.Errorf("write model file: %w", err)
	}

	if current, ok := s.versions[name]; !ok || version > current {
		s.versions[name] = version
	}
	return nil
}

// Load reads the model stored under name at version into target. Version 0
// loads the latest version. The payload checksum is verified before
// decoding.
func (s *Store) Load(name string, version uint64, target interface{}) (*ModelMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		var ok bool
		version, ok = s.versions[name]
		if !ok {
			return nil, fmt.Errorf("no stored model named %s", name)
		}
	}

	f, err := os.Open(s.modelPath(name, version))
	if err != nil {
		return nil, fmt.Errorf("open model file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress model: %w", err)
	}
	defer func() { _ = gzr.Close() }()

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed model: %w", err)
	}

	hash := sha256.Sum256(raw)
	if checksum := hex.EncodeToString(hash[:]); checksum != sf.Metadata.Checksum {
		return nil, fmt.Errorf("checksum mismatch for %s v%d: expected %s, got %s",
			name, version, sf.Metadata.Checksum, checksum)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(target); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", name, err)
	}
	return &sf.Metadata, nil
}

// LatestVersion returns the newest stored version of name.
func (s *Store) LatestVersion(name string) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.versions[name]
	return v, ok
}

// Prune removes stored versions of name older than the newest keep
// versions.
func (s *Store) Prune(name string, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return err
	}

	var versions []uint64
	for _, entry := range entries {
		base, ok := strings.CutSuffix(entry.Name(), ".gob.gz")
		if !ok {
			continue
		}
		n, v := parseModelFilename(base)
		if n == name {
			versions = append(versions, v)
		}
	}

	if len(versions) <= keep {
		return nil
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] > versions[j] })

	for _, v := range versions[keep:] {
		if err := os.Remove(s.modelPath(name, v)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("prune %s v%d: %w", name, v, err)
		}
	}
	return nil
}

func (s *Store) modelPath(name string, version uint64) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d.gob.gz", name, version))
}
