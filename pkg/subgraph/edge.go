package subgraph

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/soundprediction/blockgraph/pkg/temporal"
	"github.com/soundprediction/blockgraph/pkg/types"
)

// Endpoint is the far end of an outward edge: an EntityEndpoint or an OntologyEndpoint.
type Endpoint interface {
	Equal(other Endpoint) bool
	isEndpoint()
}

// EntityEndpoint points at an entity. Interval is the span over which the relation
// held and is nil in non-temporal subgraphs.
type EntityEndpoint struct {
	EntityID types.EntityID     `json:"entityId"`
	Interval *temporal.Interval `json:"interval,omitempty"`
}

// OntologyEndpoint points at one revision of an ontology type.
type OntologyEndpoint struct {
	BaseID     types.BaseURL `json:"baseId"`
	RevisionID RevisionKey   `json:"revisionId"`
}

func (EntityEndpoint) isEndpoint()   {}
func (OntologyEndpoint) isEndpoint() {}

// Equal compares entity ids and intervals, treating two nil intervals as equal.
func (e EntityEndpoint) Equal(other Endpoint) bool {
	o, ok := other.(EntityEndpoint)
	if !ok || e.EntityID != o.EntityID {
		return false
	}
	if e.Interval == nil || o.Interval == nil {
		return e.Interval == nil && o.Interval == nil
	}
	return e.Interval.Equal(*o.Interval)
}

func (e OntologyEndpoint) Equal(other Endpoint) bool {
	o, ok := other.(OntologyEndpoint)
	return ok && e == o
}

// VertexID returns the vertex the endpoint names.
func (e OntologyEndpoint) VertexID() VertexID {
	return VertexID{BaseID: string(e.BaseID), RevisionID: e.RevisionID}
}

// OutwardEdge is one edge leaving a source element.
type OutwardEdge struct {
	Kind          types.EdgeKind
	Reversed      bool
	RightEndpoint Endpoint
}

// Equal reports structural equality.
func (e OutwardEdge) Equal(other OutwardEdge) bool {
	if e.Kind != other.Kind || e.Reversed != other.Reversed {
		return false
	}
	if e.RightEndpoint == nil || other.RightEndpoint == nil {
		return e.RightEndpoint == nil && other.RightEndpoint == nil
	}
	return e.RightEndpoint.Equal(other.RightEndpoint)
}

// Validate checks the kind, direction and endpoint type agree.
func (e OutwardEdge) Validate() error {
	if err := e.Kind.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEdge, err)
	}
	var wantEntity bool
	switch {
	case e.Kind.IsKnowledgeGraphEdge():
		wantEntity = true
	case e.Kind.IsOntologyEdge():
		wantEntity = false
	case e.Kind == types.IsOfType:
		// entity -> type, reversed type -> entity
		wantEntity = e.Reversed
	default:
		return fmt.Errorf("%w: unhandled kind %s", ErrInvalidEdge, e.Kind)
	}

	switch ep := e.RightEndpoint.(type) {
	case EntityEndpoint:
		if !wantEntity {
			return fmt.Errorf("%w: %s (reversed=%t) needs an ontology endpoint", ErrInvalidEdge, e.Kind, e.Reversed)
		}
		if ep.EntityID == "" {
			return fmt.Errorf("%w: %s endpoint has no entity id", ErrInvalidEdge, e.Kind)
		}
		if ep.Interval != nil {
			if err := ep.Interval.Validate(); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidEdge, err)
			}
		}
	case OntologyEndpoint:
		if wantEntity {
			return fmt.Errorf("%w: %s (reversed=%t) needs an entity endpoint", ErrInvalidEdge, e.Kind, e.Reversed)
		}
		if ep.BaseID == "" || ep.RevisionID == "" {
			return fmt.Errorf("%w: %s endpoint has no base or revision id", ErrInvalidEdge, e.Kind)
		}
	case nil:
		return fmt.Errorf("%w: %s has no endpoint", ErrInvalidEdge, e.Kind)
	default:
		return fmt.Errorf("%w: unhandled endpoint %T", ErrInvalidEdge, ep)
	}
	return nil
}

type outwardEdgeJSON struct {
	Kind          types.EdgeKind  `json:"kind"`
	Reversed      bool            `json:"reversed"`
	RightEndpoint json.RawMessage `json:"rightEndpoint"`
}

func (e OutwardEdge) MarshalJSON() ([]byte, error) {
	endpoint, err := json.Marshal(e.RightEndpoint)
	if err != nil {
		return nil, err
	}
	return json.Marshal(outwardEdgeJSON{Kind: e.Kind, Reversed: e.Reversed, RightEndpoint: endpoint})
}

// UnmarshalJSON picks the endpoint type from the fields present.
func (e *OutwardEdge) UnmarshalJSON(data []byte) error {
	var in outwardEdgeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEdge, err)
	}
	var probe struct {
		EntityID *types.EntityID `json:"entityId"`
		BaseID   *types.BaseURL  `json:"baseId"`
	}
	if err := json.Unmarshal(in.RightEndpoint, &probe); err != nil {
		return fmt.Errorf("%w: endpoint: %v", ErrInvalidEdge, err)
	}

	out := OutwardEdge{Kind: in.Kind, Reversed: in.Reversed}
	switch {
	case probe.EntityID != nil:
		var ep EntityEndpoint
		if err := json.Unmarshal(in.RightEndpoint, &ep); err != nil {
			return fmt.Errorf("%w: endpoint: %v", ErrInvalidEdge, err)
		}
		out.RightEndpoint = ep
	case probe.BaseID != nil:
		var ep OntologyEndpoint
		if err := json.Unmarshal(in.RightEndpoint, &ep); err != nil {
			return fmt.Errorf("%w: endpoint: %v", ErrInvalidEdge, err)
		}
		out.RightEndpoint = ep
	default:
		return fmt.Errorf("%w: endpoint has neither entityId nor baseId", ErrInvalidEdge)
	}
	*e = out
	return nil
}

// Edges maps a source id, then the as-of key from which the list is active, to outward edges.
type Edges map[string]map[RevisionKey][]OutwardEdge

// add appends edge unless an equal edge is already recorded at source/at.
// It reports whether the edge was added.
func (es Edges) add(source string, at RevisionKey, edge OutwardEdge) bool {
	at = at.Canonical()
	byKey, ok := es[source]
	if !ok {
		byKey = make(map[RevisionKey][]OutwardEdge)
		es[source] = byKey
	}
	if slices.ContainsFunc(byKey[at], edge.Equal) {
		return false
	}
	byKey[at] = append(byKey[at], edge)
	return true
}

// contains reports whether an equal edge is recorded at source/at.
func (es Edges) contains(source string, at RevisionKey, edge OutwardEdge) bool {
	return slices.ContainsFunc(es[source][at.Canonical()], edge.Equal)
}

// EdgesAt returns the outward edges of source in effect at key: the list recorded at the
// greatest as-of key not after key. When key is a timestamp, entity edges whose interval
// does not contain it are dropped, so a lookup in the gap after a link lapsed is empty.
// It returns nil when no list starts at or before key.
func EdgesAt(sg *Subgraph, source string, key RevisionKey) []OutwardEdge {
	var (
		best  RevisionKey
		found bool
	)
	for k := range sg.Edges[source] {
		if CompareRevisionKeys(k, key) > 0 {
			continue
		}
		if !found || CompareRevisionKeys(k, best) > 0 {
			best, found = k, true
		}
	}
	if !found {
		return nil
	}
	edges := slices.Clone(sg.Edges[source][best])
	if at, ok := key.Time(); ok {
		edges = slices.DeleteFunc(edges, func(e OutwardEdge) bool {
			ep, ok := e.RightEndpoint.(EntityEndpoint)
			return ok && ep.Interval != nil && !ep.Interval.ContainsTimestamp(at)
		})
	}
	return edges
}

// outwardEdges returns every edge of source across all as-of keys, in key order.
func outwardEdges(sg *Subgraph, source string) []OutwardEdge {
	byKey := sg.Edges[source]
	var out []OutwardEdge
	for _, k := range sortedKeys(byKey) {
		out = append(out, byKey[k]...)
	}
	return out
}
