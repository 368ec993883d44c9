package subgraph

import (
	"time"

	"github.com/soundprediction/blockgraph/pkg/temporal"
	"github.com/soundprediction/blockgraph/pkg/types"
)

// GetEntities returns every entity revision, or only the latest revision of each
// entity when latestOnly is set. Results are ordered by entity id then revision.
func GetEntities(sg *Subgraph, latestOnly bool) []*types.Entity {
	if !latestOnly {
		return collect(sg, unwrapEntity)
	}
	var out []*types.Entity
	for _, e := range collect(sg, unwrapEntity) {
		if n := len(out); n > 0 && out[n-1].ID() == e.ID() {
			out[n-1] = e
			continue
		}
		out = append(out, e)
	}
	return out
}

// GetEntity returns the latest revision of an entity, or nil.
func GetEntity(sg *Subgraph, id types.EntityID) *types.Entity {
	return GetEntityRevision(sg, id)
}

// GetEntityRevision returns the revision with the greatest revision key, or nil.
func GetEntityRevision(sg *Subgraph, id types.EntityID) *types.Entity {
	revisions := entityRevisions(sg, id)
	if len(revisions) == 0 {
		return nil
	}
	return revisions[len(revisions)-1].entity
}

// GetEntityRevisionAt returns the first revision, in revision order, whose interval on
// the resolved variable axis contains at. Non-temporal subgraphs carry no validity
// intervals, so they return the latest revision.
func GetEntityRevisionAt(sg *Subgraph, id types.EntityID, at time.Time) *types.Entity {
	axis, _, ok := sg.VariableAxis()
	if !ok {
		return GetEntityRevision(sg, id)
	}
	for _, rev := range entityRevisions(sg, id) {
		interval, ok := rev.entity.Interval(axis)
		if ok && interval.ContainsTimestamp(at) {
			return rev.entity
		}
	}
	return nil
}

// GetEntityRevisionAtKey selects a revision by key. In temporal subgraphs a key that
// parses as a timestamp is looked up with GetEntityRevisionAt; otherwise the key
// must match a stored revision exactly.
func GetEntityRevisionAtKey(sg *Subgraph, id types.EntityID, key RevisionKey) *types.Entity {
	if sg.IsTemporal() {
		if at, ok := key.Time(); ok {
			return GetEntityRevisionAt(sg, id, at)
		}
	}
	v, ok := sg.Vertices.Get(VertexID{BaseID: string(id), RevisionID: key})
	if !ok {
		return nil
	}
	e, _ := unwrapEntity(v)
	return e
}

// GetEntityRevisionsByEntityID returns the revisions whose variable-axis interval
// overlaps interval, in revision order. A nil interval, or a non-temporal subgraph,
// returns every revision.
func GetEntityRevisionsByEntityID(sg *Subgraph, id types.EntityID, interval *temporal.Interval) []*types.Entity {
	axis, _, temporalSubgraph := sg.VariableAxis()
	var out []*types.Entity
	for _, rev := range entityRevisions(sg, id) {
		if interval != nil && temporalSubgraph {
			validity, ok := rev.entity.Interval(axis)
			if !ok {
				continue
			}
			if validity.IsStrictlyAfterInterval(*interval) || !validity.OverlapsInterval(*interval) {
				continue
			}
		}
		out = append(out, rev.entity)
	}
	return out
}

// GetEntityByVertexID returns nil if no vertex exists at id and
// ErrUnexpectedVertexKind if the vertex is not an entity.
func GetEntityByVertexID(sg *Subgraph, id VertexID) (*types.Entity, error) {
	return byVertexID(sg, id, EntityVertexKind, unwrapEntity)
}

// HasEntity reports whether any revision of id is present.
func HasEntity(sg *Subgraph, id types.EntityID) bool {
	return len(entityRevisions(sg, id)) > 0
}

type entityRevision struct {
	key    RevisionKey
	entity *types.Entity
}

// entityRevisions returns the entity revisions of id in ascending key order.
func entityRevisions(sg *Subgraph, id types.EntityID) []entityRevision {
	revisions := sg.Vertices[string(id)]
	out := make([]entityRevision, 0, len(revisions))
	for _, key := range sortedKeys(revisions) {
		if e, ok := unwrapEntity(revisions[key]); ok {
			out = append(out, entityRevision{key: key, entity: e})
		}
	}
	return out
}
