// Package cache stores raw ontology type schemas by versioned URL so repeated dependency
// traversals do not refetch immutable documents.
//
// Two implementations are provided: MemoryCache for a single process and BadgerCache,
// which persists entries in an embedded BadgerDB directory.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/soundprediction/blockgraph/pkg/config"
	"github.com/soundprediction/blockgraph/pkg/types"
)

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("cache is closed")

// SchemaCache maps a versioned type URL to the raw schema document fetched for it.
// Implementations are safe for concurrent use.
type SchemaCache interface {
	Get(ctx context.Context, id types.VersionedURL) ([]byte, bool, error)
	Put(ctx context.Context, id types.VersionedURL, raw []byte) error
	Close() error
}

type memoryEntry struct {
	raw     []byte
	expires time.Time
}

// MemoryCache keeps schemas in a map. A zero TTL keeps entries until Close.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[types.VersionedURL]memoryEntry
	ttl     time.Duration
	now     func() time.Time
	closed  bool
}

// NewMemoryCache returns an empty in-memory cache.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[types.VersionedURL]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, id types.VersionedURL) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, false, ErrClosed
	}
	e, ok := c.entries[id]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		return nil, false, nil
	}
	return append([]byte(nil), e.raw...), true, nil
}

func (c *MemoryCache) Put(_ context.Context, id types.VersionedURL, raw []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	e := memoryEntry{raw: append([]byte(nil), raw...)}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	c.entries[id] = e
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.entries = nil
	return nil
}

// FromConfig opens the cache selected by cfg.Driver. It returns nil for "none".
func FromConfig(cfg config.CacheConfig, logger *slog.Logger) (SchemaCache, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryCache(cfg.TTLDuration()), nil
	case "badger":
		bc := DefaultBadgerConfig()
		bc.Path = cfg.Path
		bc.TTL = cfg.TTLDuration()
		bc.Logger = logger
		c, err := OpenBadgerCache(bc)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}
