package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/blockgraph/pkg/config"
	"github.com/soundprediction/blockgraph/pkg/types"
)

const personURL types.VersionedURL = "https://example.com/et/person/v/1"

func exerciseCache(t *testing.T, c SchemaCache) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, personURL)
	require.NoError(t, err)
	assert.False(t, ok)

	raw := []byte(`{"$id":"https://example.com/et/person/v/1"}`)
	require.NoError(t, c.Put(ctx, personURL, raw))
	raw[0] = 'X'

	got, ok, err := c.Get(ctx, personURL)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, byte('{'), got[0], "cache keeps its own copy")

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := types.VersionedURL("https://example.com/et/person/v/" + string(rune('2'+i)))
			assert.NoError(t, c.Put(ctx, id, []byte("{}")))
			_, _, err := c.Get(ctx, id)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.NoError(t, c.Close())
	_, _, err = c.Get(ctx, personURL)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemoryCache(t *testing.T) {
	exerciseCache(t, NewMemoryCache(0))
}

func TestMemoryCacheTTL(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, personURL, []byte("{}")))
	_, ok, _ := c.Get(ctx, personURL)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = c.Get(ctx, personURL)
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestBadgerCache(t *testing.T) {
	c, err := OpenBadgerCache(InMemoryBadgerConfig())
	require.NoError(t, err)
	exerciseCache(t, c)
	assert.NoError(t, c.Close(), "second close is a no-op")
}

func TestBadgerCacheKeysAndPersistence(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultBadgerConfig()
	cfg.Path = dir
	cfg.SyncWrites = false
	cfg.GCInterval = time.Hour
	ctx := context.Background()

	c, err := OpenBadgerCache(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, personURL, []byte("{}")))
	require.NoError(t, c.Put(ctx, "https://example.com/dt/text/v/1", []byte("{}")))

	keys, err := c.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.VersionedURL{"https://example.com/dt/text/v/1", personURL}, keys)
	require.NoError(t, c.Close())

	reopened, err := OpenBadgerCache(cfg)
	require.NoError(t, err)
	defer reopened.Close()
	_, ok, err := reopened.Get(ctx, personURL)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpenBadgerCacheRequiresPath(t *testing.T) {
	_, err := OpenBadgerCache(DefaultBadgerConfig())
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	c, err := FromConfig(config.CacheConfig{Driver: "none"}, nil)
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = FromConfig(config.CacheConfig{Driver: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)

	c, err = FromConfig(config.CacheConfig{Driver: "badger", Path: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &BadgerCache{}, c)
	assert.NoError(t, c.Close())

	_, err = FromConfig(config.CacheConfig{Driver: "redis"}, nil)
	assert.Error(t, err)
}
