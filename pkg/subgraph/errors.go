package subgraph

import "errors"

var (
	// ErrRootNotFound is returned when a declared root has no vertex.
	ErrRootNotFound = errors.New("root vertex not found")
	// ErrUnexpectedVertexKind is returned when a vertex exists but holds another kind of element.
	ErrUnexpectedVertexKind = errors.New("unexpected vertex kind")
	// ErrVertexNotFound is returned when an edge points at an element with no vertex at all.
	ErrVertexNotFound = errors.New("vertex not found")
	// ErrAmbiguousLinkEndpoint is returned when a link entity has several distinct endpoints on one side.
	ErrAmbiguousLinkEndpoint = errors.New("link entity has more than one endpoint")
	// ErrInvalidRootID is returned when a root id does not have the shape of its kind.
	ErrInvalidRootID = errors.New("invalid root id")
	ErrInvalidEdge   = errors.New("invalid edge")
	ErrInvalidVertex = errors.New("invalid vertex")
	// ErrMissingTemporalVersioning is returned when a temporal subgraph receives an entity without temporal metadata.
	ErrMissingTemporalVersioning = errors.New("entity has no temporal versioning")
)
