// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

// Package transcache provides a BadgerDB-backed transcript cache keyed by
// source URL. Transcription is the slowest and most expensive pipeline stage;
// resubmitting the same video (common when operators tune font size or clip
// count) hits the cache and skips the AssemblyAI round trip entirely.
package transcache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/supoclip/supoclip/internal/logging"
	"github.com/supoclip/supoclip/internal/metrics"
)

const entryKeyPrefix = "transcript:"

// ErrNotCached is returned when no transcript is cached for a URL.
var ErrNotCached = errors.New("transcript not cached")

// Entry is a cached transcription result.
type Entry struct {
	SourceURL  string    `json:"source_url"`
	Transcript string    `json:"transcript"`
	Words      []Word    `json:"words,omitempty"`
	CachedAt   time.Time `json:"cached_at"`
}

// Word is one timed token of the transcript, used for subtitle rendering.
type Word struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"` // Seconds from video start
	End   float64 `json:"end"`
}

// Cache is a durable transcript cache. Safe for concurrent use.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// Open creates or opens the cache at dir. Entries expire after ttl;
// a non-positive ttl keeps entries until the store is deleted.
func Open(dir string, ttl time.Duration) (*Cache, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open transcript cache: %w", err)
	}

	logging.Debug().Str("dir", dir).Msg("Transcript cache opened")
	return &Cache{db: db, ttl: ttl}, nil
}

// key hashes the URL so arbitrary user input never becomes a raw store key.
func key(sourceURL string) []byte {
	sum := sha256.Sum256([]byte(sourceURL))
	return []byte(entryKeyPrefix + hex.EncodeToString(sum[:]))
}

// Get returns the cached entry for a URL, or ErrNotCached.
func (c *Cache) Get(sourceURL string) (*Entry, error) {
	var entry Entry

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(sourceURL))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotCached
		}
		if err != nil {
			return fmt.Errorf("get transcript: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		metrics.TranscriptCacheMisses.Inc()
		return nil, err
	}

	metrics.TranscriptCacheHits.Inc()
	return &entry, nil
}

// Put stores a transcription result for a URL.
func (c *Cache) Put(entry *Entry) error {
	if entry.SourceURL == "" {
		return fmt.Errorf("source_url required")
	}
	if entry.CachedAt.IsZero() {
		entry.CachedAt = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal transcript entry: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key(entry.SourceURL), data)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Delete removes the cached entry for a URL. Missing keys are not an error.
func (c *Cache) Delete(sourceURL string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(sourceURL))
	})
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	return c.db.Close()
}
