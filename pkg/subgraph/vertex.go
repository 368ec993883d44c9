package subgraph

import (
	"encoding/json"
	"fmt"

	"github.com/soundprediction/blockgraph/pkg/types"
)

// VertexKind tags the element a vertex wraps.
type VertexKind string

const (
	EntityVertexKind       VertexKind = "entity"
	DataTypeVertexKind     VertexKind = "dataType"
	PropertyTypeVertexKind VertexKind = "propertyType"
	EntityTypeVertexKind   VertexKind = "entityType"
)

// VertexID addresses one vertex: a base id and a revision within it.
type VertexID struct {
	BaseID     string      `json:"baseId"`
	RevisionID RevisionKey `json:"revisionId"`
}

func (v VertexID) String() string {
	return v.BaseID + "@" + string(v.RevisionID)
}

// Vertex is one of EntityVertex, DataTypeVertex, PropertyTypeVertex or EntityTypeVertex.
type Vertex interface {
	Kind() VertexKind
	isVertex()
}

type EntityVertex struct{ Inner *types.Entity }
type DataTypeVertex struct{ Inner *types.DataType }
type PropertyTypeVertex struct{ Inner *types.PropertyType }
type EntityTypeVertex struct{ Inner *types.EntityType }

func (EntityVertex) Kind() VertexKind       { return EntityVertexKind }
func (DataTypeVertex) Kind() VertexKind     { return DataTypeVertexKind }
func (PropertyTypeVertex) Kind() VertexKind { return PropertyTypeVertexKind }
func (EntityTypeVertex) Kind() VertexKind   { return EntityTypeVertexKind }

func (EntityVertex) isVertex()       {}
func (DataTypeVertex) isVertex()     {}
func (PropertyTypeVertex) isVertex() {}
func (EntityTypeVertex) isVertex()   {}

// Element returns the wrapped value.
func Element(v Vertex) any {
	switch vv := v.(type) {
	case EntityVertex:
		return vv.Inner
	case DataTypeVertex:
		return vv.Inner
	case PropertyTypeVertex:
		return vv.Inner
	case EntityTypeVertex:
		return vv.Inner
	default:
		panic(fmt.Sprintf("subgraph: unhandled vertex type %T", v))
	}
}

// OntologyVertex wraps t in the vertex of its kind.
func OntologyVertex(t types.OntologyType) (Vertex, error) {
	switch tt := t.(type) {
	case *types.DataType:
		return DataTypeVertex{Inner: tt}, nil
	case *types.PropertyType:
		return PropertyTypeVertex{Inner: tt}, nil
	case *types.EntityType:
		return EntityTypeVertex{Inner: tt}, nil
	default:
		return nil, fmt.Errorf("%w: %T is not an ontology type", ErrInvalidVertex, t)
	}
}

type vertexJSON struct {
	Kind  VertexKind      `json:"kind"`
	Inner json.RawMessage `json:"inner"`
}

func marshalVertex(kind VertexKind, inner any) ([]byte, error) {
	raw, err := json.Marshal(inner)
	if err != nil {
		return nil, err
	}
	return json.Marshal(vertexJSON{Kind: kind, Inner: raw})
}

func (v EntityVertex) MarshalJSON() ([]byte, error)       { return marshalVertex(v.Kind(), v.Inner) }
func (v DataTypeVertex) MarshalJSON() ([]byte, error)     { return marshalVertex(v.Kind(), v.Inner) }
func (v PropertyTypeVertex) MarshalJSON() ([]byte, error) { return marshalVertex(v.Kind(), v.Inner) }
func (v EntityTypeVertex) MarshalJSON() ([]byte, error)   { return marshalVertex(v.Kind(), v.Inner) }

// UnmarshalVertex decodes a tagged {"kind", "inner"} vertex.
func UnmarshalVertex(data []byte) (Vertex, error) {
	var tagged vertexJSON
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVertex, err)
	}
	switch tagged.Kind {
	case EntityVertexKind:
		var e types.Entity
		if err := json.Unmarshal(tagged.Inner, &e); err != nil {
			return nil, fmt.Errorf("%w: entity: %v", ErrInvalidVertex, err)
		}
		return EntityVertex{Inner: &e}, nil
	case DataTypeVertexKind:
		var dt types.DataType
		if err := json.Unmarshal(tagged.Inner, &dt); err != nil {
			return nil, fmt.Errorf("%w: data type: %v", ErrInvalidVertex, err)
		}
		return DataTypeVertex{Inner: &dt}, nil
	case PropertyTypeVertexKind:
		var pt types.PropertyType
		if err := json.Unmarshal(tagged.Inner, &pt); err != nil {
			return nil, fmt.Errorf("%w: property type: %v", ErrInvalidVertex, err)
		}
		return PropertyTypeVertex{Inner: &pt}, nil
	case EntityTypeVertexKind:
		var et types.EntityType
		if err := json.Unmarshal(tagged.Inner, &et); err != nil {
			return nil, fmt.Errorf("%w: entity type: %v", ErrInvalidVertex, err)
		}
		return EntityTypeVertex{Inner: &et}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidVertex, tagged.Kind)
	}
}

// Vertices maps base id, then revision key, to a vertex.
type Vertices map[string]map[RevisionKey]Vertex

// Get returns the vertex at id, if any.
func (vs Vertices) Get(id VertexID) (Vertex, bool) {
	v, ok := vs[id.BaseID][id.RevisionID.Canonical()]
	return v, ok
}

func (vs Vertices) put(id VertexID, v Vertex) {
	revisions, ok := vs[id.BaseID]
	if !ok {
		revisions = make(map[RevisionKey]Vertex)
		vs[id.BaseID] = revisions
	}
	revisions[id.RevisionID.Canonical()] = v
}

// UnmarshalJSON decodes every tagged vertex.
func (vs *Vertices) UnmarshalJSON(data []byte) error {
	var raw map[string]map[RevisionKey]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Vertices, len(raw))
	for baseID, revisions := range raw {
		for rev, msg := range revisions {
			v, err := UnmarshalVertex(msg)
			if err != nil {
				return fmt.Errorf("vertex %s@%s: %w", baseID, rev, err)
			}
			out.put(VertexID{BaseID: baseID, RevisionID: rev}, v)
		}
	}
	*vs = out
	return nil
}
