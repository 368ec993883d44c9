package types

import (
	"errors"
	"fmt"
)

var ErrUnknownEdgeKind = errors.New("unknown edge kind")

// EdgeKind tags an outward edge of a subgraph.
type EdgeKind string

// Ontology edge kinds
const (
	InheritsFrom                 EdgeKind = "INHERITS_FROM"
	ConstrainsValuesOn           EdgeKind = "CONSTRAINS_VALUES_ON"
	ConstrainsPropertiesOn       EdgeKind = "CONSTRAINS_PROPERTIES_ON"
	ConstrainsLinksOn            EdgeKind = "CONSTRAINS_LINKS_ON"
	ConstrainsLinkDestinationsOn EdgeKind = "CONSTRAINS_LINK_DESTINATIONS_ON"
)

// Edge kinds from an entity
const (
	IsOfType       EdgeKind = "IS_OF_TYPE"
	HasLeftEntity  EdgeKind = "HAS_LEFT_ENTITY"
	HasRightEntity EdgeKind = "HAS_RIGHT_ENTITY"
)

// IsOntologyEdge reports whether the kind connects two ontology types.
func (k EdgeKind) IsOntologyEdge() bool {
	switch k {
	case InheritsFrom, ConstrainsValuesOn, ConstrainsPropertiesOn, ConstrainsLinksOn, ConstrainsLinkDestinationsOn:
		return true
	}
	return false
}

// IsKnowledgeGraphEdge reports whether the kind connects two entities.
func (k EdgeKind) IsKnowledgeGraphEdge() bool {
	return k == HasLeftEntity || k == HasRightEntity
}

// Validate rejects kinds outside the vocabulary.
func (k EdgeKind) Validate() error {
	if k.IsOntologyEdge() || k.IsKnowledgeGraphEdge() || k == IsOfType {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownEdgeKind, string(k))
}
