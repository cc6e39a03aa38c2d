// Package blobcache caches compressed payload blobs between builds.
// Entries are keyed by the SHA-256 of the uncompressed content plus the
// compression level, so a rebuild only recompresses files that actually
// changed. This matters most under watch mode, where builds run on every
// source edit.
package blobcache

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when no blob is cached for a key.
var ErrNotFound = errors.New("blob not cached")

// Cache wraps Badger for compressed-blob storage.
type Cache struct {
	db *badger.DB
}

// Open opens or creates a blob cache at the given directory.
func Open(path string) (*Cache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Badger's own logging is noise here

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open blob cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the cache.
func (c *Cache) Close() error {
	return c.db.Close()
}

// makeKey builds the cache key for a content digest and compression level.
func makeKey(sha256hex string, level int) []byte {
	return []byte(fmt.Sprintf("%s:%d", sha256hex, level))
}

// Get returns the cached compressed blob for the given content digest and
// level, or ErrNotFound.
func (c *Cache) Get(sha256hex string, level int) ([]byte, error) {
	var blob []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeKey(sha256hex, level))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return blob, nil
}

// Put stores a compressed blob.
func (c *Cache) Put(sha256hex string, level int, blob []byte) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(makeKey(sha256hex, level), blob)
	})
}

// Stats describes the cache contents.
type Stats struct {
	Entries int64
	Bytes   int64
}

// Stats iterates the cache and reports entry count and total blob bytes.
func (c *Cache) Stats() (Stats, error) {
	var stats Stats
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			stats.Entries++
			stats.Bytes += it.Item().ValueSize()
		}
		return nil
	})
	return stats, err
}

// Clear drops every cached blob.
func (c *Cache) Clear() error {
	return c.db.DropAll()
}
