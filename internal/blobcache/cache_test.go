package blobcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirCache_RoundTrip(t *testing.T) {
	c, err := NewDirCache(t.TempDir())
	require.NoError(t, err)

	_, ok := c.Get("img1")
	assert.False(t, ok)

	require.NoError(t, c.Set("img1", []byte("jpeg bytes")))
	data, ok := c.Get("img1")
	require.True(t, ok)
	assert.Equal(t, []byte("jpeg bytes"), data)

	c.Evict("img1")
	_, ok = c.Get("img1")
	assert.False(t, ok)
}

func TestDirCache_ReloadsExistingEntries(t *testing.T) {
	dir := t.TempDir()
	first, err := NewDirCache(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set("img1", []byte("persisted")))

	second, err := NewDirCache(dir)
	require.NoError(t, err)
	data, ok := second.Get("img1")
	require.True(t, ok)
	assert.Equal(t, []byte("persisted"), data)
}

func TestDirCache_SanitizesKeys(t *testing.T) {
	dir := t.TempDir()
	c, err := NewDirCache(dir)
	require.NoError(t, err)

	require.NoError(t, c.Set("../escape", []byte("x")))
	_, err = os.Stat(filepath.Join(dir, "escape"))
	assert.NoError(t, err, "key must be confined to the cache directory")
}

func TestNull(t *testing.T) {
	var c Cache = Null{}
	require.NoError(t, c.Set("k", []byte("v")))
	_, ok := c.Get("k")
	assert.False(t, ok)
	c.Evict("k")
}
