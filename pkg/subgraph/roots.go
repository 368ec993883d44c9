package subgraph

import (
	"fmt"

	"github.com/soundprediction/blockgraph/pkg/types"
)

// GetRoots resolves every root to its vertex, in root order.
// A root without a vertex is a malformed subgraph and yields ErrRootNotFound.
func GetRoots(sg *Subgraph) ([]Vertex, error) {
	out := make([]Vertex, 0, len(sg.Roots))
	for _, id := range sg.Roots {
		v, ok := sg.Vertices.Get(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, id)
		}
		out = append(out, v)
	}
	return out, nil
}

// RootedSubgraph is a subgraph whose roots have all been checked to be of one kind.
type RootedSubgraph[T any] struct {
	*Subgraph
	roots []T
}

// RootElements returns the resolved roots in root order.
func (r *RootedSubgraph[T]) RootElements() []T {
	return r.roots
}

func newRootedSubgraph[T any](sg *Subgraph, want VertexKind, checkID func(VertexID) error, unwrap unwrapFunc[T]) (*RootedSubgraph[T], error) {
	roots := make([]T, 0, len(sg.Roots))
	for _, id := range sg.Roots {
		if err := checkID(id); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRootID, id, err)
		}
		v, ok := sg.Vertices.Get(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, id)
		}
		el, ok := unwrap(v)
		if !ok {
			return nil, fmt.Errorf("%w: root %s is a %s, expected %s", ErrUnexpectedVertexKind, id, v.Kind(), want)
		}
		roots = append(roots, el)
	}
	return &RootedSubgraph[T]{Subgraph: sg, roots: roots}, nil
}

func entityRootIDCheck(sg *Subgraph) func(VertexID) error {
	return func(id VertexID) error {
		if id.BaseID == "" || id.RevisionID == "" {
			return types.ErrEmptyID
		}
		if sg.IsTemporal() {
			if _, ok := id.RevisionID.Time(); !ok {
				return fmt.Errorf("revision %q is not a timestamp", id.RevisionID)
			}
		}
		return nil
	}
}

func ontologyRootIDCheck(id VertexID) error {
	if err := types.BaseURL(id.BaseID).Validate(); err != nil {
		return err
	}
	if v, ok := id.RevisionID.Version(); !ok || v == 0 {
		return fmt.Errorf("revision %q is not a version", id.RevisionID)
	}
	return nil
}

// NewEntityRootedSubgraph checks that every root is an entity.
func NewEntityRootedSubgraph(sg *Subgraph) (*RootedSubgraph[*types.Entity], error) {
	return newRootedSubgraph(sg, EntityVertexKind, entityRootIDCheck(sg), unwrapEntity)
}

// NewDataTypeRootedSubgraph checks that every root is a data type.
func NewDataTypeRootedSubgraph(sg *Subgraph) (*RootedSubgraph[*types.DataType], error) {
	return newRootedSubgraph(sg, DataTypeVertexKind, ontologyRootIDCheck, unwrapDataType)
}

// NewPropertyTypeRootedSubgraph checks that every root is a property type.
func NewPropertyTypeRootedSubgraph(sg *Subgraph) (*RootedSubgraph[*types.PropertyType], error) {
	return newRootedSubgraph(sg, PropertyTypeVertexKind, ontologyRootIDCheck, unwrapPropertyType)
}

// NewEntityTypeRootedSubgraph checks that every root is an entity type.
func NewEntityTypeRootedSubgraph(sg *Subgraph) (*RootedSubgraph[*types.EntityType], error) {
	return newRootedSubgraph(sg, EntityTypeVertexKind, ontologyRootIDCheck, unwrapEntityType)
}

// IsEntityRootedSubgraph reports whether every root resolves to an entity.
func IsEntityRootedSubgraph(sg *Subgraph) bool {
	_, err := NewEntityRootedSubgraph(sg)
	return err == nil
}

// IsDataTypeRootedSubgraph reports whether every root resolves to a data type.
func IsDataTypeRootedSubgraph(sg *Subgraph) bool {
	_, err := NewDataTypeRootedSubgraph(sg)
	return err == nil
}

// IsPropertyTypeRootedSubgraph reports whether every root resolves to a property type.
func IsPropertyTypeRootedSubgraph(sg *Subgraph) bool {
	_, err := NewPropertyTypeRootedSubgraph(sg)
	return err == nil
}

// IsEntityTypeRootedSubgraph reports whether every root resolves to an entity type.
func IsEntityTypeRootedSubgraph(sg *Subgraph) bool {
	_, err := NewEntityTypeRootedSubgraph(sg)
	return err == nil
}
