package subgraph

import (
	"fmt"

	"github.com/soundprediction/blockgraph/pkg/ontology"
	"github.com/soundprediction/blockgraph/pkg/temporal"
	"github.com/soundprediction/blockgraph/pkg/types"
)

// The by-mutation helpers below write into the subgraph they are given.
// Each call stages its writes and applies them only once the whole batch has
// been checked, so a failed call leaves the subgraph untouched.
//
// They do not check referential completeness: edges are created even when the
// entity or type at the other end has no vertex.

type stagedVertex struct {
	id     VertexID
	vertex Vertex
}

type stagedEdge struct {
	source string
	at     RevisionKey
	edge   OutwardEdge
}

type delta struct {
	vertices []stagedVertex
	edges    []stagedEdge
}

func (d *delta) stageVertex(id VertexID, v Vertex) {
	d.vertices = append(d.vertices, stagedVertex{id: id, vertex: v})
}

func (d *delta) stageEdge(source string, at RevisionKey, edge OutwardEdge) error {
	if err := edge.Validate(); err != nil {
		return fmt.Errorf("edge from %s at %s: %w", source, at, err)
	}
	d.edges = append(d.edges, stagedEdge{source: source, at: at, edge: edge})
	return nil
}

func (d *delta) commit(sg *Subgraph) {
	sg.ensureMaps()
	for _, sv := range d.vertices {
		sg.Vertices.put(sv.id, sv.vertex)
	}
	for _, se := range d.edges {
		sg.Edges.add(se.source, se.at, se.edge)
	}
}

// EntityRevisionKey returns the key an entity revision is stored under: the start of its
// variable-axis interval in temporal subgraphs, its edition id (or "0") otherwise.
func EntityRevisionKey(sg *Subgraph, e *types.Entity) (RevisionKey, error) {
	axis, _, ok := sg.VariableAxis()
	if !ok {
		if e.Metadata.RecordID.EditionID == "" {
			return "0", nil
		}
		return RevisionKey(e.Metadata.RecordID.EditionID), nil
	}
	interval, ok := e.Interval(axis)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingTemporalVersioning, e.ID())
	}
	return RevisionKeyFromBound(interval.Start), nil
}

type linkKey struct {
	link, left, right types.EntityID
}

type linkGroup struct {
	intervals []temporal.Interval
	keys      []RevisionKey
}

// AddEntitiesToSubgraphByMutation inserts the entities as vertices and derives the
// HAS_LEFT_ENTITY and HAS_RIGHT_ENTITY edges of every link entity among them.
//
// Revisions of one link entity are grouped by their left and right entity. In a
// temporal subgraph the validity intervals of each group are merged into disjoint
// intervals and four edges are written per interval, keyed by the interval start.
func AddEntitiesToSubgraphByMutation(sg *Subgraph, entities []*types.Entity) error {
	axis, _, temporalSubgraph := sg.VariableAxis()

	var (
		d      delta
		order  []linkKey
		groups = make(map[linkKey]*linkGroup)
	)
	for i, e := range entities {
		if e == nil {
			return fmt.Errorf("%w: entity %d is nil", ErrInvalidVertex, i)
		}
		if err := e.Validate(); err != nil {
			return fmt.Errorf("entity %d (%s): %w", i, e.ID(), err)
		}
		key, err := EntityRevisionKey(sg, e)
		if err != nil {
			return fmt.Errorf("entity %d: %w", i, err)
		}
		d.stageVertex(VertexID{BaseID: string(e.ID()), RevisionID: key}, EntityVertex{Inner: e})

		if e.LinkData == nil {
			continue
		}
		lk := linkKey{link: e.ID(), left: e.LinkData.LeftEntityID, right: e.LinkData.RightEntityID}
		g, ok := groups[lk]
		if !ok {
			g = &linkGroup{}
			groups[lk] = g
			order = append(order, lk)
		}
		if temporalSubgraph {
			interval, _ := e.Interval(axis)
			g.intervals = append(g.intervals, interval)
		} else {
			g.keys = append(g.keys, key)
		}
	}

	for _, lk := range order {
		g := groups[lk]
		if temporalSubgraph {
			for _, interval := range temporal.UnionOfIntervals(g.intervals...) {
				if err := stageLinkEdges(&d, lk, RevisionKeyFromBound(interval.Start), &interval); err != nil {
					return err
				}
			}
			continue
		}
		for _, key := range g.keys {
			if err := stageLinkEdges(&d, lk, key, nil); err != nil {
				return err
			}
		}
	}

	d.commit(sg)
	return nil
}

func stageLinkEdges(d *delta, lk linkKey, at RevisionKey, interval *temporal.Interval) error {
	endpoint := func(id types.EntityID) EntityEndpoint {
		if interval == nil {
			return EntityEndpoint{EntityID: id}
		}
		iv := *interval
		return EntityEndpoint{EntityID: id, Interval: &iv}
	}
	staged := []stagedEdge{
		{string(lk.link), at, OutwardEdge{Kind: types.HasLeftEntity, RightEndpoint: endpoint(lk.left)}},
		{string(lk.left), at, OutwardEdge{Kind: types.HasLeftEntity, Reversed: true, RightEndpoint: endpoint(lk.link)}},
		{string(lk.link), at, OutwardEdge{Kind: types.HasRightEntity, RightEndpoint: endpoint(lk.right)}},
		{string(lk.right), at, OutwardEdge{Kind: types.HasRightEntity, Reversed: true, RightEndpoint: endpoint(lk.link)}},
	}
	for _, se := range staged {
		if err := d.stageEdge(se.source, se.at, se.edge); err != nil {
			return err
		}
	}
	return nil
}

// AddKnowledgeGraphEdgeToSubgraphByMutation records edge as leaving source from at onwards.
// An edge equal to one already recorded at source/at is not added again.
func AddKnowledgeGraphEdgeToSubgraphByMutation(sg *Subgraph, source types.EntityID, at RevisionKey, edge OutwardEdge) error {
	if source == "" || at == "" {
		return fmt.Errorf("%w: source and timestamp are required", ErrInvalidEdge)
	}
	if edge.Kind.IsOntologyEdge() {
		return fmt.Errorf("%w: %s does not leave an entity", ErrInvalidEdge, edge.Kind)
	}
	var d delta
	if err := d.stageEdge(string(source), at.Canonical(), edge); err != nil {
		return err
	}
	d.commit(sg)
	return nil
}

// AddOntologyTypesToSubgraphByMutation inserts ontology types as vertices and records
// an edge pair, forward and reversed, for every dependency of each type.
func AddOntologyTypesToSubgraphByMutation(sg *Subgraph, ontologyTypes ...types.OntologyType) error {
	var d delta
	for _, t := range ontologyTypes {
		if t == nil {
			return fmt.Errorf("%w: nil ontology type", ErrInvalidVertex)
		}
		rid, err := t.TypeID().RecordID()
		if err != nil {
			return fmt.Errorf("ontology type %q: %w", t.TypeID(), err)
		}
		v, err := OntologyVertex(t)
		if err != nil {
			return err
		}
		sourceKey := RevisionKeyFromVersion(rid.Version)
		d.stageVertex(VertexID{BaseID: string(rid.BaseURL), RevisionID: sourceKey}, v)

		for _, dep := range ontology.Dependencies(t) {
			target, err := dep.Target.RecordID()
			if err != nil {
				return fmt.Errorf("ontology type %s: %s reference: %w", t.TypeID(), dep.Kind, err)
			}
			targetKey := RevisionKeyFromVersion(target.Version)
			forward := OutwardEdge{
				Kind:          dep.Kind,
				RightEndpoint: OntologyEndpoint{BaseID: target.BaseURL, RevisionID: targetKey},
			}
			reverse := OutwardEdge{
				Kind:          dep.Kind,
				Reversed:      true,
				RightEndpoint: OntologyEndpoint{BaseID: rid.BaseURL, RevisionID: sourceKey},
			}
			if err := d.stageEdge(string(rid.BaseURL), sourceKey, forward); err != nil {
				return err
			}
			if err := d.stageEdge(string(target.BaseURL), targetKey, reverse); err != nil {
				return err
			}
		}
	}
	d.commit(sg)
	return nil
}
