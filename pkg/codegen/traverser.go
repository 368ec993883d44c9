package codegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/soundprediction/blockgraph/pkg/ontology"
	"github.com/soundprediction/blockgraph/pkg/subgraph"
	"github.com/soundprediction/blockgraph/pkg/types"
	"github.com/soundprediction/blockgraph/pkg/utils"
)

var (
	// ErrNoTypeIDs is returned when Traverse is called without ids.
	ErrNoTypeIDs = errors.New("no type ids to traverse")
	// ErrTypeIDMismatch is returned when a fetched schema declares a different $id.
	ErrTypeIDMismatch = errors.New("fetched schema has a different $id")
)

// Validator checks and decodes a raw ontology schema.
type Validator interface {
	Validate(raw []byte) (types.OntologyType, error)
}

// Result is everything a traversal resolved. After a failed or cancelled traversal it
// holds every type resolved before the failure, and Pending lists the ids that were
// queued or failed but not resolved.
type Result struct {
	TraversalID  string
	Requested    []types.VersionedURL
	Types        map[types.VersionedURL]types.OntologyType
	Dependencies *DependencyMap
	Pending      []types.VersionedURL
	Duration     time.Duration
}

// SortedTypes returns the resolved types ordered by id.
func (r *Result) SortedTypes() []types.OntologyType {
	ids := make([]types.VersionedURL, 0, len(r.Types))
	for id := range r.Types {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]types.OntologyType, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.Types[id])
	}
	return out
}

// Subgraph materialises the resolved types as an ontology subgraph rooted at the
// requested ids that were resolved.
func (r *Result) Subgraph() (*subgraph.Subgraph, error) {
	sg := subgraph.New(nil)
	if err := subgraph.AddOntologyTypesToSubgraphByMutation(sg, r.SortedTypes()...); err != nil {
		return nil, err
	}
	for _, id := range r.Requested {
		if _, ok := r.Types[id]; !ok {
			continue
		}
		rid, err := id.RecordID()
		if err != nil {
			return nil, err
		}
		subgraph.AddRoots(sg, subgraph.VertexID{
			BaseID:     string(rid.BaseURL),
			RevisionID: subgraph.RevisionKeyFromVersion(rid.Version),
		})
	}
	return sg, nil
}

// Traverser walks the dependency graph of a set of ontology types.
type Traverser struct {
	fetcher        TypeFetcher
	validator      Validator
	maxConcurrency int
	logger         *slog.Logger
}

// TraverserOption configures a Traverser.
type TraverserOption func(*Traverser)

// WithMaxConcurrency bounds the number of fetches in flight. Values below one are ignored.
func WithMaxConcurrency(n int) TraverserOption {
	return func(t *Traverser) {
		if n > 0 {
			t.maxConcurrency = n
		}
	}
}

func WithLogger(logger *slog.Logger) TraverserOption {
	return func(t *Traverser) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTraverser creates a traverser. validator is usually an *ontology.Validator.
func NewTraverser(fetcher TypeFetcher, validator Validator, opts ...TraverserOption) *Traverser {
	t := &Traverser{
		fetcher:        fetcher,
		validator:      validator,
		maxConcurrency: utils.DefaultSemaphoreLimit,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type fetchResult struct {
	id  types.VersionedURL
	typ types.OntologyType
	err error
}

// Traverse resolves ids and every type they transitively depend on.
//
// A single goroutine owns the queue and the result; fetches run on at most
// maxConcurrency worker goroutines and report back over a channel. On the first
// fetch or validation error, or when ctx is done, no further fetches are started.
// Fetches already in flight are drained and recorded before Traverse returns, so the
// partial Result is always consistent.
func (t *Traverser) Traverse(ctx context.Context, ids []types.VersionedURL) (*Result, error) {
	if len(ids) == 0 {
		return nil, ErrNoTypeIDs
	}
	for _, id := range ids {
		if err := id.Validate(); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	traversalID := uuid.NewString()
	ctx = context.WithValue(ctx, types.ContextKeyTraversalID, traversalID)
	logger := t.logger.With("traversal_id", traversalID)

	res := &Result{
		TraversalID:  traversalID,
		Types:        make(map[types.VersionedURL]types.OntologyType),
		Dependencies: NewDependencyMap(),
	}

	seen := make(map[types.VersionedURL]struct{}, len(ids))
	var queue []types.VersionedURL
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		res.Requested = append(res.Requested, id)
		queue = append(queue, id)
	}

	results := make(chan fetchResult)
	inFlight := 0
	var firstErr error

	for {
		for firstErr == nil && ctx.Err() == nil && inFlight < t.maxConcurrency && len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			inFlight++
			go t.resolve(ctx, id, results)
		}
		if inFlight == 0 {
			break
		}

		r := <-results
		inFlight--
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
				logger.Error("ontology traversal failed", "id", r.id, "error", r.err)
			} else {
				logger.Debug("additional fetch failure while draining", "id", r.id, "error", r.err)
			}
			queue = append(queue, r.id)
			continue
		}

		res.Types[r.id] = r.typ
		res.Dependencies.AddType(r.id)
		for _, dep := range ontology.DependencyURLs(r.typ) {
			res.Dependencies.AddDependency(r.id, dep)
			if _, ok := seen[dep]; ok {
				continue
			}
			seen[dep] = struct{}{}
			queue = append(queue, dep)
		}
	}

	res.Pending = queue
	slices.Sort(res.Pending)
	res.Duration = time.Since(start)

	if firstErr == nil && ctx.Err() != nil {
		firstErr = fmt.Errorf("ontology traversal cancelled: %w", ctx.Err())
	}
	if firstErr != nil {
		logger.Warn("ontology traversal stopped early",
			"resolved", len(res.Types),
			"pending", len(res.Pending))
		return res, firstErr
	}

	logger.Info("ontology traversal complete",
		"requested", len(res.Requested),
		"resolved", len(res.Types),
		"duration", res.Duration)
	return res, nil
}

func (t *Traverser) resolve(ctx context.Context, id types.VersionedURL, out chan<- fetchResult) {
	sent := false
	defer utils.RecoverWithCallback(func(err error) {
		if !sent {
			out <- fetchResult{id: id, err: fmt.Errorf("resolve %s: %w", id, err)}
		}
	})

	typ, err := t.fetchAndValidate(ctx, id)
	sent = true
	out <- fetchResult{id: id, typ: typ, err: err}
}

func (t *Traverser) fetchAndValidate(ctx context.Context, id types.VersionedURL) (types.OntologyType, error) {
	raw, err := t.fetcher.Fetch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}
	typ, err := t.validator.Validate(raw)
	if err != nil {
		return nil, fmt.Errorf("validate %s: %w", id, err)
	}
	if typ.TypeID() != id {
		return nil, fmt.Errorf("%w: requested %s, got %s", ErrTypeIDMismatch, id, typ.TypeID())
	}
	return typ, nil
}
