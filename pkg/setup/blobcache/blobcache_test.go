package blobcache

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, c.Close()) })
	return c
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestPutGet(t *testing.T) {
	c := openTestCache(t)

	content := []byte("uncompressed file content")
	blob := []byte("pretend-gzip-bytes")
	key := digest(content)

	_, err := c.Get(key, 6)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Put(key, 6, blob))

	got, err := c.Get(key, 6)
	require.NoError(t, err)
	assert.Equal(t, blob, got)

	// Same content at a different level is a distinct entry.
	_, err = c.Get(key, 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatsAndClear(t *testing.T) {
	c := openTestCache(t)

	require.NoError(t, c.Put(digest([]byte("a")), 6, []byte("blob-a")))
	require.NoError(t, c.Put(digest([]byte("b")), 6, []byte("blob-b")))

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Entries)
	assert.Greater(t, stats.Bytes, int64(0))

	require.NoError(t, c.Clear())

	stats, err = c.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Entries)
}
