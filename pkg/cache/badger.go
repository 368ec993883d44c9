package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/soundprediction/blockgraph/pkg/types"
)

const keyPrefix = "schema/"

// BadgerConfig holds configuration for a BadgerCache.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. Useful for tests.
	InMemory bool

	SyncWrites bool

	// TTL expires entries after the given duration; zero keeps them.
	TTL time.Duration

	// Logger receives BadgerDB's own log output. Nil silences it.
	Logger *slog.Logger

	// GCInterval is how often value log GC runs; zero disables it.
	GCInterval     time.Duration
	GCDiscardRatio float64
}

// DefaultBadgerConfig returns production defaults: synchronous writes and a
// five minute GC interval.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryBadgerConfig returns a configuration for tests.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// badgerLogger adapts slog.Logger to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerCache is a SchemaCache persisted in BadgerDB.
type BadgerCache struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger

	stopGC    chan struct{}
	gcDone    chan struct{}
	closeOnce sync.Once
}

// OpenBadgerCache opens (creating if needed) the database described by cfg.
// The caller must Close it.
func OpenBadgerCache(cfg BadgerConfig) (*BadgerCache, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger cache: path is required for a persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &BadgerCache{db: db, ttl: cfg.TTL, logger: logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		c.stopGC = make(chan struct{})
		c.gcDone = make(chan struct{})
		go c.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return c, nil
}

func key(id types.VersionedURL) []byte {
	return []byte(keyPrefix + string(id))
}

func (c *BadgerCache) Get(_ context.Context, id types.VersionedURL) ([]byte, bool, error) {
	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, false, nil
	case errors.Is(err, badger.ErrDBClosed):
		return nil, false, ErrClosed
	case err != nil:
		return nil, false, fmt.Errorf("badger cache get %s: %w", id, err)
	}
	return raw, true, nil
}

func (c *BadgerCache) Put(_ context.Context, id types.VersionedURL, raw []byte) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key(id), raw)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	if err != nil {
		return fmt.Errorf("badger cache put %s: %w", id, err)
	}
	return nil
}

// Keys lists every cached type URL in key order.
func (c *BadgerCache) Keys(_ context.Context) ([]types.VersionedURL, error) {
	var out []types.VersionedURL
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().Key()
			out = append(out, types.VersionedURL(k[len(keyPrefix):]))
		}
		return nil
	})
	return out, err
}

func (c *BadgerCache) runGC(interval time.Duration, ratio float64) {
	defer close(c.gcDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopGC:
			return
		case <-ticker.C:
			err := c.db.RunValueLogGC(ratio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				c.logger.Warn("badger value log GC error", "error", err)
			}
		}
	}
}

// Close stops GC and closes the database. Further calls are no-ops.
func (c *BadgerCache) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.stopGC != nil {
			close(c.stopGC)
			<-c.gcDone
		}
		err = c.db.Close()
	})
	return err
}
