package subgraph

import (
	"fmt"

	"github.com/soundprediction/blockgraph/pkg/temporal"
	"github.com/soundprediction/blockgraph/pkg/types"
)

// EdgeResolveDepths is how far a query followed one edge kind in each direction.
type EdgeResolveDepths struct {
	Incoming uint8 `json:"incoming"`
	Outgoing uint8 `json:"outgoing"`
}

// GraphResolveDepths records the traversal depths used to build a subgraph.
type GraphResolveDepths struct {
	InheritsFrom                 EdgeResolveDepths `json:"inheritsFrom"`
	ConstrainsValuesOn           EdgeResolveDepths `json:"constrainsValuesOn"`
	ConstrainsPropertiesOn       EdgeResolveDepths `json:"constrainsPropertiesOn"`
	ConstrainsLinksOn            EdgeResolveDepths `json:"constrainsLinksOn"`
	ConstrainsLinkDestinationsOn EdgeResolveDepths `json:"constrainsLinkDestinationsOn"`
	IsOfType                     EdgeResolveDepths `json:"isOfType"`
	HasLeftEntity                EdgeResolveDepths `json:"hasLeftEntity"`
	HasRightEntity               EdgeResolveDepths `json:"hasRightEntity"`
}

// Subgraph is a versioned, time-indexed slice of a knowledge graph.
//
// A Subgraph owns its Vertices and Edges maps. It has no internal locking:
// callers that share one across goroutines must serialize mutation themselves.
// TemporalAxes is nil for non-temporal subgraphs.
type Subgraph struct {
	Roots        []VertexID          `json:"roots"`
	Vertices     Vertices            `json:"vertices"`
	Edges        Edges               `json:"edges"`
	Depths       GraphResolveDepths  `json:"depths"`
	TemporalAxes *types.TemporalAxes `json:"temporalAxes,omitempty"`
}

// New returns an empty subgraph. Pass nil axes for a non-temporal subgraph.
func New(axes *types.TemporalAxes) *Subgraph {
	return &Subgraph{
		Roots:        []VertexID{},
		Vertices:     make(Vertices),
		Edges:        make(Edges),
		TemporalAxes: axes,
	}
}

// IsTemporal reports whether the subgraph carries resolved temporal axes.
func (sg *Subgraph) IsTemporal() bool {
	return sg.TemporalAxes != nil
}

// VariableAxis returns the resolved variable axis and its interval.
// The boolean is false for non-temporal subgraphs.
func (sg *Subgraph) VariableAxis() (types.TemporalAxis, temporal.Interval, bool) {
	if sg.TemporalAxes == nil {
		return "", temporal.Interval{}, false
	}
	v := sg.TemporalAxes.Resolved.Variable
	return v.Axis, v.Interval, true
}

// AddRoots appends root ids, skipping ones already present.
// Roots are not checked against Vertices here; GetRoots does that.
func AddRoots(sg *Subgraph, ids ...VertexID) {
	for _, id := range ids {
		id.RevisionID = id.RevisionID.Canonical()
		exists := false
		for _, root := range sg.Roots {
			if root == id {
				exists = true
				break
			}
		}
		if !exists {
			sg.Roots = append(sg.Roots, id)
		}
	}
}

// Validate checks the structure of a decoded subgraph: temporal axes, every edge, and
// that every root resolves. It does not check that edge endpoints have vertices.
func (sg *Subgraph) Validate() error {
	if sg.TemporalAxes != nil {
		if err := sg.TemporalAxes.Resolved.Validate(); err != nil {
			return fmt.Errorf("temporal axes: %w", err)
		}
	}
	for source, byKey := range sg.Edges {
		for at, edges := range byKey {
			for i, edge := range edges {
				if err := edge.Validate(); err != nil {
					return fmt.Errorf("edge %s@%s[%d]: %w", source, at, i, err)
				}
			}
		}
	}
	_, err := GetRoots(sg)
	return err
}

// ensureMaps initialises maps left nil by JSON decoding of partial documents.
func (sg *Subgraph) ensureMaps() {
	if sg.Vertices == nil {
		sg.Vertices = make(Vertices)
	}
	if sg.Edges == nil {
		sg.Edges = make(Edges)
	}
}
