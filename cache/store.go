// Package cache keeps SSO tokens and role credentials as JSON documents on disk.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	errUtils "awsom/errors"
	"awsom/utils"
)

const (
	dirPerms  = 0o700
	filePerms = 0o600
	fileExt   = ".json"
)

// Document is a cached value that knows when it stops being usable.
type Document interface {
	IsExpired() bool
}

// Entry is one raw document found in the cache directory.
type Entry struct {
	Key  string
	Data []byte
}

// Store maps keys to JSON files in a single directory. There is no index:
// every read checks existence, parseability and expiry.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+fileExt)
}

// Get decodes the document stored under key into doc. A missing file, a parse
// failure and an expired document all report false; none of them is an error.
func (s *Store) Get(key string, doc Document) bool {
	path := s.path(key)

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Debug("Cache entry unreadable", "path", path, "error", err)
		}
		return false
	}

	if err := json.Unmarshal(data, doc); err != nil {
		log.Debug("Ignoring malformed cache entry", "path", path, "error", err)
		return false
	}

	if doc.IsExpired() {
		log.Debug("Cache entry expired", "path", path)
		return false
	}

	return true
}

// Put replaces the whole document stored under key.
func (s *Store) Put(key string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: failed to encode cache entry: %w", errUtils.ErrCache, err)
	}

	if err := os.MkdirAll(s.dir, dirPerms); err != nil {
		return fmt.Errorf("%w: failed to create cache directory %s: %w", errUtils.ErrCache, s.dir, err)
	}

	path := s.path(key)
	if err := utils.WriteFileAtomic(path, data, filePerms); err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", errUtils.ErrCache, path, err)
	}

	log.Debug("Wrote cache entry", "path", path)
	return nil
}

// Remove deletes the document stored under key if there is one.
func (s *Store) Remove(key string) error {
	path := s.path(key)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: failed to remove %s: %w", errUtils.ErrCache, path, err)
	}
	return nil
}

// Entries lists every readable document in the directory. Unreadable files
// are skipped; a missing directory is an empty cache.
func (s *Store) Entries() ([]Entry, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to read cache directory %s: %w", errUtils.ErrCache, s.dir, err)
	}

	var entries []Entry
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), fileExt) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, f.Name()))
		if err != nil {
			log.Debug("Skipping unreadable cache entry", "file", f.Name(), "error", err)
			continue
		}
		entries = append(entries, Entry{Key: strings.TrimSuffix(f.Name(), fileExt), Data: data})
	}

	return entries, nil
}
