package subgraph

import (
	"fmt"
	"math"
	"slices"

	"github.com/soundprediction/blockgraph/pkg/types"
)

// unwrapFunc extracts an element of one kind from a vertex.
type unwrapFunc[T any] func(Vertex) (T, bool)

func unwrapDataType(v Vertex) (*types.DataType, bool) {
	dv, ok := v.(DataTypeVertex)
	return dv.Inner, ok
}

func unwrapPropertyType(v Vertex) (*types.PropertyType, bool) {
	pv, ok := v.(PropertyTypeVertex)
	return pv.Inner, ok
}

func unwrapEntityType(v Vertex) (*types.EntityType, bool) {
	ev, ok := v.(EntityTypeVertex)
	return ev.Inner, ok
}

func unwrapEntity(v Vertex) (*types.Entity, bool) {
	ev, ok := v.(EntityVertex)
	return ev.Inner, ok
}

// collect returns every element of one kind, ordered by base id then revision.
func collect[T any](sg *Subgraph, unwrap unwrapFunc[T]) []T {
	baseIDs := make([]string, 0, len(sg.Vertices))
	for baseID := range sg.Vertices {
		baseIDs = append(baseIDs, baseID)
	}
	slices.Sort(baseIDs)

	var out []T
	for _, baseID := range baseIDs {
		revisions := sg.Vertices[baseID]
		for _, rev := range sortedKeys(revisions) {
			if el, ok := unwrap(revisions[rev]); ok {
				out = append(out, el)
			}
		}
	}
	return out
}

// byBase returns every revision of one kind stored under baseID, in revision order.
func byBase[T any](sg *Subgraph, baseID string, unwrap unwrapFunc[T]) []T {
	revisions := sg.Vertices[baseID]
	var out []T
	for _, rev := range sortedKeys(revisions) {
		if el, ok := unwrap(revisions[rev]); ok {
			out = append(out, el)
		}
	}
	return out
}

// byVersionedURL looks up the exact revision addressed by id.
func byVersionedURL[T any](sg *Subgraph, id types.VersionedURL, unwrap unwrapFunc[T]) T {
	var zero T
	base, version, err := types.ParseVersionedURL(string(id))
	if err != nil {
		return zero
	}
	v, ok := sg.Vertices.Get(VertexID{BaseID: string(base), RevisionID: RevisionKeyFromVersion(version)})
	if !ok {
		return zero
	}
	el, ok := unwrap(v)
	if !ok {
		return zero
	}
	return el
}

// byVertexID resolves id and fails if the vertex holds another kind.
func byVertexID[T any](sg *Subgraph, id VertexID, want VertexKind, unwrap unwrapFunc[T]) (T, error) {
	var zero T
	v, ok := sg.Vertices.Get(id)
	if !ok {
		return zero, nil
	}
	el, ok := unwrap(v)
	if !ok {
		return zero, fmt.Errorf("%w: vertex %s is a %s, expected %s", ErrUnexpectedVertexKind, id, v.Kind(), want)
	}
	return el, nil
}

// GetDataTypes returns every data type in the subgraph.
func GetDataTypes(sg *Subgraph) []*types.DataType {
	return collect(sg, unwrapDataType)
}

// GetDataTypeByID returns the data type with exactly this versioned URL, or nil.
func GetDataTypeByID(sg *Subgraph, id types.VersionedURL) *types.DataType {
	return byVersionedURL(sg, id, unwrapDataType)
}

// GetDataTypeByVertexID returns nil if no vertex exists at id and
// ErrUnexpectedVertexKind if the vertex is not a data type.
func GetDataTypeByVertexID(sg *Subgraph, id VertexID) (*types.DataType, error) {
	return byVertexID(sg, id, DataTypeVertexKind, unwrapDataType)
}

// GetDataTypesByBaseURL returns every version of a data type present in the subgraph.
func GetDataTypesByBaseURL(sg *Subgraph, base types.BaseURL) []*types.DataType {
	return byBase(sg, string(base), unwrapDataType)
}

// GetPropertyTypes returns every property type in the subgraph.
func GetPropertyTypes(sg *Subgraph) []*types.PropertyType {
	return collect(sg, unwrapPropertyType)
}

// GetPropertyTypeByID returns the property type with exactly this versioned URL, or nil.
func GetPropertyTypeByID(sg *Subgraph, id types.VersionedURL) *types.PropertyType {
	return byVersionedURL(sg, id, unwrapPropertyType)
}

// GetPropertyTypeByVertexID returns nil if no vertex exists at id and
// ErrUnexpectedVertexKind if the vertex is not a property type.
func GetPropertyTypeByVertexID(sg *Subgraph, id VertexID) (*types.PropertyType, error) {
	return byVertexID(sg, id, PropertyTypeVertexKind, unwrapPropertyType)
}

// GetPropertyTypesByBaseURL returns every version of a property type present in the subgraph.
func GetPropertyTypesByBaseURL(sg *Subgraph, base types.BaseURL) []*types.PropertyType {
	return byBase(sg, string(base), unwrapPropertyType)
}

// GetEntityTypes returns every entity type in the subgraph.
func GetEntityTypes(sg *Subgraph) []*types.EntityType {
	return collect(sg, unwrapEntityType)
}

// GetEntityTypeByID returns the entity type with exactly this versioned URL, or nil.
func GetEntityTypeByID(sg *Subgraph, id types.VersionedURL) *types.EntityType {
	return byVersionedURL(sg, id, unwrapEntityType)
}

// GetEntityTypeByVertexID returns nil if no vertex exists at id and
// ErrUnexpectedVertexKind if the vertex is not an entity type.
func GetEntityTypeByVertexID(sg *Subgraph, id VertexID) (*types.EntityType, error) {
	return byVertexID(sg, id, EntityTypeVertexKind, unwrapEntityType)
}

// GetEntityTypesByBaseURL returns every version of an entity type present in the subgraph.
func GetEntityTypesByBaseURL(sg *Subgraph, base types.BaseURL) []*types.EntityType {
	return byBase(sg, string(base), unwrapEntityType)
}

// GetEntityTypeAncestors walks INHERITS_FROM transitively from id and returns every
// ancestor present in the subgraph, nearest first. Parents come from the recorded
// edges and from the schema's allOf. Cycles are tolerated.
func GetEntityTypeAncestors(sg *Subgraph, id types.VersionedURL) []*types.EntityType {
	visited := map[types.VersionedURL]bool{id: true}
	queue := parentsOf(sg, id)
	var out []*types.EntityType
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if visited[next] {
			continue
		}
		visited[next] = true
		if et := GetEntityTypeByID(sg, next); et != nil {
			out = append(out, et)
		}
		queue = append(queue, parentsOf(sg, next)...)
	}
	return out
}

func parentsOf(sg *Subgraph, id types.VersionedURL) []types.VersionedURL {
	base, version, err := types.ParseVersionedURL(string(id))
	if err != nil {
		return nil
	}
	var parents []types.VersionedURL
	for _, edge := range sg.Edges[string(base)][RevisionKeyFromVersion(version)] {
		if edge.Kind != types.InheritsFrom || edge.Reversed {
			continue
		}
		if ep, ok := edge.RightEndpoint.(OntologyEndpoint); ok {
			if v, ok := ep.RevisionID.Version(); ok && v <= math.MaxUint32 {
				rid := types.OntologyTypeRecordID{BaseURL: ep.BaseID, Version: uint32(v)}
				parents = append(parents, rid.VersionedURL())
			}
		}
	}
	if et := GetEntityTypeByID(sg, id); et != nil {
		for _, ref := range et.Schema.AllOf {
			parents = append(parents, ref.Ref)
		}
	}
	slices.Sort(parents)
	return slices.Compact(parents)
}

// IsLinkEntityType reports whether id is, or inherits from, the link entity type.
// Parents missing from the subgraph are still recognised through allOf references.
func IsLinkEntityType(sg *Subgraph, id types.VersionedURL) bool {
	linkBase := types.LinkEntityTypeURL.BaseURL()
	if id.BaseURL() == linkBase {
		return true
	}
	visited := map[types.VersionedURL]bool{}
	queue := []types.VersionedURL{id}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if visited[next] {
			continue
		}
		visited[next] = true
		for _, parent := range parentsOf(sg, next) {
			if parent.BaseURL() == linkBase {
				return true
			}
			queue = append(queue, parent)
		}
	}
	return false
}
