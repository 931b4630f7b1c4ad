// Package caching is a file-based page cache with a TTL, keyed by URL.
// It keeps enrichment from refetching the same bookmark targets run after
// run.
package caching

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Cache stores fetched pages on disk, one file per URL. Entry age is read
// from file modification time, so no index file is needed.
type Cache struct {
	dir string
	ttl time.Duration
}

// NewCache opens a cache rooted at dir, creating the directory as needed.
func NewCache(dir string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{dir: dir, ttl: ttl}, nil
}

// Get returns the cached page for url. Missing, expired or unreadable
// entries all report a miss.
func (c *Cache) Get(url string) ([]byte, bool) {
	path := c.entryPath(url)

	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if time.Since(info.ModTime()) > c.ttl {
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores a page under its URL, replacing any previous entry.
func (c *Cache) Set(url string, data []byte) error {
	if err := os.WriteFile(c.entryPath(url), data, 0644); err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	return nil
}

// entryPath hashes the URL into a filesystem-safe filename.
func (c *Cache) entryPath(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".html")
}
