package subgraph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/soundprediction/blockgraph/pkg/temporal"
	"github.com/soundprediction/blockgraph/pkg/types"
)

// LinkEntityAndRightEntity pairs the revisions of an outgoing link with the
// revisions of the entity it points to.
type LinkEntityAndRightEntity struct {
	LinkEntity  []*types.Entity `json:"linkEntity"`
	RightEntity []*types.Entity `json:"rightEntity"`
}

// LinkEntityAndLeftEntity pairs the revisions of an incoming link with the
// revisions of the entity it comes from.
type LinkEntityAndLeftEntity struct {
	LinkEntity []*types.Entity `json:"linkEntity"`
	LeftEntity []*types.Entity `json:"leftEntity"`
}

// scope restricts an edge search. Windows clip temporal edges to the parts of the
// variable axis being searched; keys select the as-of entries of non-temporal edges.
// Zero values mean no restriction.
type scope struct {
	windows []temporal.Interval
	keys    []RevisionKey
}

// searchScope returns the scope of interval, or of the resolved variable axis
// interval when nil.
func searchScope(sg *Subgraph, interval *temporal.Interval) scope {
	if interval != nil {
		return scope{windows: []temporal.Interval{*interval}}
	}
	if _, resolved, ok := sg.VariableAxis(); ok {
		return scope{windows: []temporal.Interval{resolved}}
	}
	return scope{}
}

// reach is an entity reached from a source, with the part of the search over which
// the edges to it held.
type reach struct {
	id types.EntityID
	scope
}

// reachable returns the entities reached from source over edges of kind and direction
// within in, sorted by id.
func reachable(sg *Subgraph, source types.EntityID, kind types.EdgeKind, reversed bool, in scope) []reach {
	byID := make(map[types.EntityID]*reach)
	byKey := sg.Edges[string(source)]
	for _, key := range sortedKeys(byKey) {
		for _, edge := range byKey[key] {
			if edge.Kind != kind || edge.Reversed != reversed {
				continue
			}
			ep, ok := edge.RightEndpoint.(EntityEndpoint)
			if !ok {
				continue
			}
			if ep.Interval == nil && len(in.keys) > 0 && !slices.Contains(in.keys, key) {
				continue
			}
			windows, ok := clip(ep.Interval, in.windows)
			if !ok {
				continue
			}
			r, ok := byID[ep.EntityID]
			if !ok {
				r = &reach{id: ep.EntityID}
				byID[ep.EntityID] = r
			}
			r.windows = append(r.windows, windows...)
			if len(r.keys) == 0 || r.keys[len(r.keys)-1] != key {
				r.keys = append(r.keys, key)
			}
		}
	}

	out := make([]reach, 0, len(byID))
	for _, r := range byID {
		if len(r.windows) > 0 {
			r.windows = temporal.UnionOfIntervals(r.windows...)
		}
		out = append(out, *r)
	}
	slices.SortFunc(out, func(a, b reach) int {
		return strings.Compare(string(a.id), string(b.id))
	})
	return out
}

// clip intersects an edge interval with the search windows. An edge without an
// interval is kept as is and contributes no windows.
func clip(interval *temporal.Interval, windows []temporal.Interval) ([]temporal.Interval, bool) {
	if interval == nil {
		return nil, true
	}
	if len(windows) == 0 {
		return []temporal.Interval{*interval}, true
	}
	var out []temporal.Interval
	for _, w := range windows {
		if iv, ok := interval.IntersectionWithInterval(w); ok {
			out = append(out, iv)
		}
	}
	return out, len(out) > 0
}

// revisionsWithin returns the revisions of id overlapping any of windows, in revision
// order. Without windows it falls back to the search windows, then to every revision.
func revisionsWithin(sg *Subgraph, id types.EntityID, windows, search []temporal.Interval) []*types.Entity {
	if len(windows) == 0 {
		windows = search
	}
	if len(windows) == 0 {
		return GetEntityRevisionsByEntityID(sg, id, nil)
	}
	var out []*types.Entity
	seen := make(map[*types.Entity]bool)
	for _, w := range windows {
		for _, e := range GetEntityRevisionsByEntityID(sg, id, &w) {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	return out
}

// linkRevisions returns the revisions of linkID behind the edges in r: those overlapping
// its windows, or in non-temporal subgraphs those stored under its as-of keys.
func linkRevisions(sg *Subgraph, linkID types.EntityID, r reach, search scope) []*types.Entity {
	if len(r.windows) > 0 {
		return revisionsWithin(sg, linkID, r.windows, nil)
	}
	var out []*types.Entity
	for _, key := range r.keys {
		v, ok := sg.Vertices.Get(VertexID{BaseID: string(linkID), RevisionID: key})
		if !ok {
			continue
		}
		if e, ok := unwrapEntity(v); ok {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return revisionsWithin(sg, linkID, nil, search.windows)
	}
	return out
}

func requireEntity(sg *Subgraph, id types.EntityID) error {
	if !HasEntity(sg, id) {
		return fmt.Errorf("%w: entity %s", ErrVertexNotFound, id)
	}
	return nil
}

func linksFor(sg *Subgraph, entityID types.EntityID, kind types.EdgeKind, interval *temporal.Interval) ([]*types.Entity, error) {
	search := searchScope(sg, interval)
	var out []*types.Entity
	for _, link := range reachable(sg, entityID, kind, true, search) {
		if err := requireEntity(sg, link.id); err != nil {
			return nil, fmt.Errorf("link of %s: %w", entityID, err)
		}
		out = append(out, linkRevisions(sg, link.id, link, search)...)
	}
	return out, nil
}

// GetOutgoingLinksForEntity returns the revisions of every link entity whose left
// entity is entityID. A nil interval searches the resolved variable axis.
func GetOutgoingLinksForEntity(sg *Subgraph, entityID types.EntityID, interval *temporal.Interval) ([]*types.Entity, error) {
	return linksFor(sg, entityID, types.HasLeftEntity, interval)
}

// GetIncomingLinksForEntity returns the revisions of every link entity whose right
// entity is entityID.
func GetIncomingLinksForEntity(sg *Subgraph, entityID types.EntityID, interval *temporal.Interval) ([]*types.Entity, error) {
	return linksFor(sg, entityID, types.HasRightEntity, interval)
}

func endpointFor(sg *Subgraph, linkID types.EntityID, kind types.EdgeKind, interval *temporal.Interval) ([]*types.Entity, error) {
	search := searchScope(sg, interval)
	reached := reachable(sg, linkID, kind, false, search)
	if err := checkSingleEndpoint(linkID, kind, reached); err != nil {
		return nil, err
	}
	var out []*types.Entity
	for _, r := range reached {
		if err := requireEntity(sg, r.id); err != nil {
			return nil, fmt.Errorf("%s of link %s: %w", kind, linkID, err)
		}
		out = append(out, revisionsWithin(sg, r.id, r.windows, search.windows)...)
	}
	return out, nil
}

// checkSingleEndpoint fails when two different endpoints held at the same time. Endpoints
// without windows (non-temporal edges) always coincide.
func checkSingleEndpoint(linkID types.EntityID, kind types.EdgeKind, reached []reach) error {
	for i := range reached {
		for j := i + 1; j < len(reached); j++ {
			if overlapping(reached[i].windows, reached[j].windows) {
				ids := []types.EntityID{reached[i].id, reached[j].id}
				return fmt.Errorf("%w: %s of link %s resolves to %v", ErrAmbiguousLinkEndpoint, kind, linkID, ids)
			}
		}
	}
	return nil
}

func overlapping(a, b []temporal.Interval) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	for _, x := range a {
		for _, y := range b {
			if x.OverlapsInterval(y) {
				return true
			}
		}
	}
	return false
}

// GetLeftEntityForLinkEntity returns the revisions of the entity a link starts at.
// It returns an empty result when the link has no HAS_LEFT_ENTITY edge in interval.
// A link re-pointed over time yields each endpoint's revisions within the window it
// held; ErrAmbiguousLinkEndpoint is returned when two endpoints held at once.
func GetLeftEntityForLinkEntity(sg *Subgraph, linkID types.EntityID, interval *temporal.Interval) ([]*types.Entity, error) {
	return endpointFor(sg, linkID, types.HasLeftEntity, interval)
}

// GetRightEntityForLinkEntity returns the revisions of the entity a link points to.
func GetRightEntityForLinkEntity(sg *Subgraph, linkID types.EntityID, interval *temporal.Interval) ([]*types.Entity, error) {
	return endpointFor(sg, linkID, types.HasRightEntity, interval)
}

// resolvePairs resolves the far endpoint of every link of entityID. near is the edge kind
// joining the link to entityID and far the kind leading on. Each (link, endpoint) pair
// is resolved over the windows in which both edges held.
func resolvePairs(sg *Subgraph, entityID types.EntityID, near, far types.EdgeKind, interval *temporal.Interval, emit func(link, endpoint []*types.Entity)) error {
	search := searchScope(sg, interval)
	for _, link := range reachable(sg, entityID, near, true, search) {
		if err := requireEntity(sg, link.id); err != nil {
			return fmt.Errorf("link of %s: %w", entityID, err)
		}
		within := scope{windows: link.windows, keys: link.keys}
		if len(within.windows) == 0 {
			within.windows = search.windows
		}
		for _, endpoint := range reachable(sg, link.id, far, false, within) {
			if err := requireEntity(sg, endpoint.id); err != nil {
				return fmt.Errorf("%s of link %s: %w", far, link.id, err)
			}
			emit(
				linkRevisions(sg, link.id, endpoint, within),
				revisionsWithin(sg, endpoint.id, endpoint.windows, within.windows),
			)
		}
	}
	return nil
}

// GetOutgoingLinkAndTargetEntities pairs each outgoing link of entityID with its right
// entity, ordered by link id then target id. A link re-pointed over time yields one pair
// per target, each restricted to the window it was pointed at. An entity without
// outgoing links yields an empty slice.
func GetOutgoingLinkAndTargetEntities(sg *Subgraph, entityID types.EntityID, interval *temporal.Interval) ([]LinkEntityAndRightEntity, error) {
	out := []LinkEntityAndRightEntity{}
	err := resolvePairs(sg, entityID, types.HasLeftEntity, types.HasRightEntity, interval, func(link, right []*types.Entity) {
		out = append(out, LinkEntityAndRightEntity{LinkEntity: link, RightEntity: right})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetIncomingLinkAndSourceEntities pairs each incoming link of entityID with its left
// entity, ordered by link id then source id.
func GetIncomingLinkAndSourceEntities(sg *Subgraph, entityID types.EntityID, interval *temporal.Interval) ([]LinkEntityAndLeftEntity, error) {
	out := []LinkEntityAndLeftEntity{}
	err := resolvePairs(sg, entityID, types.HasRightEntity, types.HasLeftEntity, interval, func(link, left []*types.Entity) {
		out = append(out, LinkEntityAndLeftEntity{LinkEntity: link, LeftEntity: left})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
