package blockgraph

import (
	"github.com/soundprediction/blockgraph/pkg/subgraph"
	"github.com/soundprediction/blockgraph/pkg/temporal"
	"github.com/soundprediction/blockgraph/pkg/types"
)

// Inspection is a readable summary of a subgraph.
type Inspection struct {
	Temporal      bool            `json:"temporal" yaml:"temporal"`
	Roots         []RootSummary   `json:"roots" yaml:"roots"`
	Entities      []EntitySummary `json:"entities" yaml:"entities"`
	DataTypes     int             `json:"dataTypes" yaml:"data_types"`
	PropertyTypes int             `json:"propertyTypes" yaml:"property_types"`
	EntityTypes   int             `json:"entityTypes" yaml:"entity_types"`
}

// RootSummary describes one resolved root.
type RootSummary struct {
	ID    string              `json:"id" yaml:"id"`
	Kind  subgraph.VertexKind `json:"kind" yaml:"kind"`
	Label string              `json:"label" yaml:"label"`
}

// EntitySummary describes the latest revision of one entity and its outgoing links.
type EntitySummary struct {
	ID        types.EntityID `json:"id" yaml:"id"`
	Label     string         `json:"label" yaml:"label"`
	Type      string         `json:"type" yaml:"type"`
	Revisions int            `json:"revisions" yaml:"revisions"`
	Links     []LinkSummary  `json:"links,omitempty" yaml:"links,omitempty"`
}

// LinkSummary is one outgoing link and the label of its target.
type LinkSummary struct {
	LinkID types.EntityID `json:"linkId" yaml:"link_id"`
	Target types.EntityID `json:"target" yaml:"target"`
	Label  string         `json:"label" yaml:"label"`
}

// Inspect summarises sg: its roots, then every non-link entity at its latest
// revision with the links leaving it over the subgraph's resolved interval.
func Inspect(sg *subgraph.Subgraph, interval *temporal.Interval) (*Inspection, error) {
	roots, err := subgraph.GetRoots(sg)
	if err != nil {
		return nil, err
	}

	out := &Inspection{
		Temporal:      sg.IsTemporal(),
		DataTypes:     len(subgraph.GetDataTypes(sg)),
		PropertyTypes: len(subgraph.GetPropertyTypes(sg)),
		EntityTypes:   len(subgraph.GetEntityTypes(sg)),
	}
	for i, v := range roots {
		out.Roots = append(out.Roots, RootSummary{
			ID:    sg.Roots[i].String(),
			Kind:  v.Kind(),
			Label: vertexLabel(sg, v),
		})
	}

	for _, e := range subgraph.GetEntities(sg, true) {
		if e.IsLink() {
			continue
		}
		summary := EntitySummary{
			ID:        e.ID(),
			Label:     subgraph.EntityLabel(sg, e),
			Type:      string(e.Metadata.EntityTypeID),
			Revisions: len(subgraph.GetEntityRevisionsByEntityID(sg, e.ID(), nil)),
		}
		pairs, err := subgraph.GetOutgoingLinkAndTargetEntities(sg, e.ID(), interval)
		if err != nil {
			return nil, err
		}
		for _, p := range pairs {
			if len(p.LinkEntity) == 0 {
				continue
			}
			seen := make(map[types.EntityID]bool)
			for _, target := range p.RightEntity {
				if seen[target.ID()] {
					continue
				}
				seen[target.ID()] = true
				summary.Links = append(summary.Links, LinkSummary{
					LinkID: p.LinkEntity[0].ID(),
					Target: target.ID(),
					Label:  subgraph.EntityLabel(sg, target),
				})
			}
		}
		out.Entities = append(out.Entities, summary)
	}
	return out, nil
}

func vertexLabel(sg *subgraph.Subgraph, v subgraph.Vertex) string {
	switch v := v.(type) {
	case subgraph.EntityVertex:
		return subgraph.EntityLabel(sg, v.Inner)
	case subgraph.DataTypeVertex:
		return v.Inner.Title()
	case subgraph.PropertyTypeVertex:
		return v.Inner.Title()
	case subgraph.EntityTypeVertex:
		return v.Inner.Title()
	default:
		return ""
	}
}
