// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package cacheutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/concord-consortium/cloudops/internal/log"
)

const (
	// EnvDir overrides the base cache directory.
	EnvDir = "CLOUDOPS_CACHE_DIR"
	// EnvEnabled disables caching when "0" or "false".
	EnvEnabled = "CLOUDOPS_CACHE"

	dirName = "cloudops"
)

// Dir resolves the base cache directory: EnvDir when set, otherwise
// os.UserCacheDir()/cloudops. ok is false when neither resolves, which
// disables the cache.
func Dir() (string, bool) {
	if c := os.Getenv(EnvDir); c != "" {
		return c, true
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, dirName), true
	}
	return "", false
}

// Enabled reports whether caching is on.
func Enabled() bool {
	switch os.Getenv(EnvEnabled) {
	case "0", "false":
		return false
	}
	return true
}

// EnsureBaseDir creates the base cache directory when caching is enabled.
// ok reports whether the directory is usable.
func EnsureBaseDir() (base string, ok bool, err error) {
	if !Enabled() {
		return "", false, nil
	}
	if base, ok = Dir(); !ok {
		return "", false, nil
	}

	if err := os.MkdirAll(base, 0o755); err != nil { //nolint:mnd
		return base, false, fmt.Errorf("failed to create cache base directory: %w", err)
	}
	return base, true, nil
}

// Purge removes cache files older than hours. hours <= 0 turns it off.
func Purge(hours int) error {
	if hours <= 0 {
		log.Debug("cache cleaning disabled")
		return nil
	}

	base, ok := Dir()
	if !ok {
		return nil
	}

	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, walkErr error) error {
		switch {
		case errors.Is(walkErr, fs.ErrNotExist):
			return nil
		case walkErr != nil:
			return walkErr
		case d.IsDir():
			return nil
		}

		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			log.WithError(err).Warnf("failed to remove cache file %s", path)
			return nil
		}
		log.Debugf("removed cache file %s", path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}
	return nil
}

// Store is a namespaced view of the cache. Entries older than MaxAge are
// treated as misses; a zero MaxAge never expires.
type Store struct {
	Subdirs []string
	MaxAge  time.Duration
}

// New returns a Store rooted at the given subdirectories of the base dir.
func New(maxAge time.Duration, subdirs ...string) *Store {
	return &Store{Subdirs: subdirs, MaxAge: maxAge}
}

// path returns where key lives. ok is false when no base dir is resolvable.
func (s *Store) path(key string) (string, bool) {
	base, ok := Dir()
	if !ok {
		return "", false
	}
	parts := append([]string{base}, s.Subdirs...)
	return filepath.Join(append(parts, encodeKey(key))...), true
}

// Get returns the cached bytes for key.
func (s *Store) Get(key string) ([]byte, bool) {
	if s == nil || !Enabled() {
		return nil, false
	}
	p, ok := s.path(key)
	if !ok {
		return nil, false
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, false
	}
	if s.MaxAge > 0 && time.Since(info.ModTime()) > s.MaxAge {
		log.Debugf("cache stale: key=%s", key)
		return nil, false
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, false
	}
	log.Debugf("cache hit: key=%s", key)
	return bytes.TrimSpace(b), true
}

// Put stores data for key, creating directories as needed.
func (s *Store) Put(key string, data []byte) error {
	if s == nil || !Enabled() {
		return nil
	}
	p, ok := s.path(key)
	if !ok {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(p, data, os.FileMode(0o600)); err != nil { //nolint:mnd
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	log.Debugf("cache write: key=%s", key)
	return nil
}

// encodeKey turns any key into a safe file name.
func encodeKey(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
