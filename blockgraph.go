package blockgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/soundprediction/blockgraph/pkg/cache"
	"github.com/soundprediction/blockgraph/pkg/codegen"
	"github.com/soundprediction/blockgraph/pkg/config"
	"github.com/soundprediction/blockgraph/pkg/graphsink"
	"github.com/soundprediction/blockgraph/pkg/logger"
	"github.com/soundprediction/blockgraph/pkg/ontology"
	"github.com/soundprediction/blockgraph/pkg/subgraph"
	"github.com/soundprediction/blockgraph/pkg/telemetry"
	"github.com/soundprediction/blockgraph/pkg/types"
	"github.com/soundprediction/blockgraph/pkg/utils"
)

var (
	// ErrSinkNotConfigured is returned by ExportSubgraph when no sink is set up.
	ErrSinkNotConfigured = errors.New("no graph sink configured")
	// ErrInvalidSubgraph is returned when a subgraph document cannot be decoded or fails validation.
	ErrInvalidSubgraph = errors.New("invalid subgraph")
)

// Options overrides the collaborators NewClient would otherwise build from config.
type Options struct {
	Logger  *slog.Logger
	Fetcher codegen.TypeFetcher
	Cache   cache.SchemaCache
	Sink    graphsink.Sink
	// Now is used for manifest timestamps.
	Now func() time.Time
}

// Client bundles what the blockgraph commands and the HTTP service share: logging,
// schema validation, the dependency traversal and an optional graph sink.
type Client struct {
	config    *config.Config
	logger    *slog.Logger
	flush     func() error
	validator *ontology.Validator
	cache     cache.SchemaCache
	ownsCache bool
	traverser *codegen.Traverser
	sink      graphsink.Sink
	now       func() time.Time
}

// NewLogger builds the logger described by cfg, wrapped in the telemetry handler
// when telemetry is enabled. The returned flush function is never nil.
func NewLogger(cfg *config.Config) (*slog.Logger, func() error, error) {
	base := logger.NewLogger(os.Stderr, logger.ParseLevel(cfg.Log.Level), cfg.Log.Format)
	h, flush, err := telemetry.FromConfig(base.Handler(), cfg.Telemetry)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}
	return slog.New(h), flush, nil
}

// NewClient creates a Client from cfg. Anything set in opts is used as is; the rest
// is built from cfg. The Neo4j sink is only created when cfg.Neo4j.URI is set.
func NewClient(cfg *config.Config, opts *Options) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if opts == nil {
		opts = &Options{}
	}

	c := &Client{config: cfg, logger: opts.Logger, flush: func() error { return nil }, now: opts.Now}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		l, flush, err := NewLogger(cfg)
		if err != nil {
			return nil, err
		}
		c.logger, c.flush = l, flush
	}

	validator, err := ontology.NewValidator(c.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build ontology validator: %w", err)
	}
	c.validator = validator

	fetcher := opts.Fetcher
	if fetcher == nil {
		c.cache = opts.Cache
		if c.cache == nil {
			c.cache, err = cache.FromConfig(cfg.Cache, c.logger)
			if err != nil {
				return nil, fmt.Errorf("failed to open schema cache: %w", err)
			}
			c.ownsCache = c.cache != nil
		}
		fetcher = codegen.NewFetcherFromConfig(cfg, c.cache, c.logger)
	}
	c.traverser = codegen.NewTraverser(fetcher, validator,
		codegen.WithMaxConcurrency(cfg.Codegen.MaxConcurrency),
		codegen.WithLogger(c.logger))

	c.sink = opts.Sink
	if c.sink == nil && cfg.Neo4j.URI != "" {
		sink, err := graphsink.NewNeo4jSink(cfg.Neo4j, c.logger)
		if err != nil {
			c.closeCache()
			return nil, err
		}
		c.sink = sink
	}
	return c, nil
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger { return c.logger }

// Config returns the configuration the client was built from.
func (c *Client) Config() *config.Config { return c.config }

// Traverser returns the ontology dependency traverser.
func (c *Client) Traverser() *codegen.Traverser { return c.traverser }

// Sink returns the configured graph sink, or nil.
func (c *Client) Sink() graphsink.Sink { return c.sink }

// ValidateSchema checks one raw ontology type schema.
func (c *Client) ValidateSchema(raw []byte) (t types.OntologyType, err error) {
	defer utils.RecoverAsError(&err)
	return c.validator.Validate(raw)
}

// ResolveDependencies traverses the dependency closure of ids and summarises it.
// When the traversal stops early the manifest covers what was resolved and the
// error is returned with it.
func (c *Client) ResolveDependencies(ctx context.Context, ids []types.VersionedURL) (*codegen.Manifest, *codegen.Result, error) {
	res, err := c.traverser.Traverse(ctx, ids)
	if res == nil {
		return nil, nil, err
	}
	return codegen.NewManifest(res, c.now()), res, err
}

// LoadSubgraph decodes a subgraph document and validates its structure.
func LoadSubgraph(r io.Reader) (*subgraph.Subgraph, error) {
	var sg subgraph.Subgraph
	if err := json.NewDecoder(r).Decode(&sg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSubgraph, err)
	}
	if err := sg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSubgraph, err)
	}
	return &sg, nil
}

// LoadSubgraphFile reads a subgraph document from path.
func LoadSubgraphFile(path string) (*subgraph.Subgraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadSubgraph(f)
}

// ExportSubgraph writes sg to the configured sink.
func (c *Client) ExportSubgraph(ctx context.Context, sg *subgraph.Subgraph) (*graphsink.ExportStats, error) {
	if c.sink == nil {
		return nil, ErrSinkNotConfigured
	}
	return c.sink.Export(ctx, sg)
}

// Close releases the sink and the cache the client opened, and flushes telemetry.
func (c *Client) Close(ctx context.Context) error {
	var errs []error
	if c.sink != nil {
		errs = append(errs, c.sink.Close(ctx))
	}
	errs = append(errs, c.closeCache(), c.flush())
	return errors.Join(errs...)
}

func (c *Client) closeCache() error {
	if !c.ownsCache || c.cache == nil {
		return nil
	}
	err := c.cache.Close()
	c.cache = nil
	return err
}
