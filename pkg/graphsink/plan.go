package graphsink

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/soundprediction/blockgraph/pkg/subgraph"
	"github.com/soundprediction/blockgraph/pkg/temporal"
	"github.com/soundprediction/blockgraph/pkg/types"
)

// ErrUnsupportedEdge is returned for an edge whose endpoints do not match its kind.
var ErrUnsupportedEdge = errors.New("unsupported edge")

// Row is one UNWIND row.
type Row = map[string]any

// Plan is the set of parameter rows an export writes, grouped by the query that
// consumes them. Every slice is sorted so plans are deterministic.
type Plan struct {
	OntologyTypes map[subgraph.VertexKind][]Row
	Entities      []Row
	Relationships map[types.EdgeKind][]Row
}

// Counts returns the number of nodes and relationships in the plan.
func (p *Plan) Counts() (nodes, relationships int) {
	for _, rows := range p.OntologyTypes {
		nodes += len(rows)
	}
	nodes += len(p.Entities)
	for _, rows := range p.Relationships {
		relationships += len(rows)
	}
	return nodes, relationships
}

// BuildPlan flattens sg into rows. Entities are exported once, at their latest
// revision. Reversed edges are skipped since each one mirrors a forward edge.
// An IS_OF_TYPE relationship is added for every entity whose type is in sg.
func BuildPlan(sg *subgraph.Subgraph) (*Plan, error) {
	p := &Plan{
		OntologyTypes: make(map[subgraph.VertexKind][]Row),
		Relationships: make(map[types.EdgeKind][]Row),
	}

	for _, t := range subgraph.GetDataTypes(sg) {
		if err := p.addOntologyType(subgraph.DataTypeVertexKind, t, t.Schema); err != nil {
			return nil, err
		}
	}
	for _, t := range subgraph.GetPropertyTypes(sg) {
		if err := p.addOntologyType(subgraph.PropertyTypeVertexKind, t, t.Schema); err != nil {
			return nil, err
		}
	}
	for _, t := range subgraph.GetEntityTypes(sg) {
		if err := p.addOntologyType(subgraph.EntityTypeVertexKind, t, t.Schema); err != nil {
			return nil, err
		}
	}

	rels := newRelationshipSet()
	for _, e := range subgraph.GetEntities(sg, true) {
		row, err := entityRow(sg, e)
		if err != nil {
			return nil, err
		}
		p.Entities = append(p.Entities, row)
		if subgraph.GetEntityTypeByID(sg, e.Metadata.EntityTypeID) != nil {
			rels.add(types.IsOfType, Row{"source": string(e.ID()), "target": string(e.Metadata.EntityTypeID)})
		}
	}

	sources := make([]string, 0, len(sg.Edges))
	for source := range sg.Edges {
		sources = append(sources, source)
	}
	slices.Sort(sources)
	for _, source := range sources {
		for at, edges := range sg.Edges[source] {
			for _, edge := range edges {
				if edge.Reversed {
					continue
				}
				row, err := relationshipRow(source, at, edge)
				if err != nil {
					return nil, err
				}
				rels.add(edge.Kind, row)
			}
		}
	}
	p.Relationships = rels.sorted()
	return p, nil
}

func (p *Plan) addOntologyType(kind subgraph.VertexKind, t types.OntologyType, schema any) error {
	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("encode %s schema: %w", t.TypeID(), err)
	}
	id := t.TypeID()
	p.OntologyTypes[kind] = append(p.OntologyTypes[kind], Row{
		"id":       string(id),
		"base_url": string(id.BaseURL()),
		"version":  int64(id.Version()),
		"title":    t.Title(),
		"kind":     string(t.TypeKind()),
		"schema":   string(raw),
	})
	return nil
}

func entityRow(sg *subgraph.Subgraph, e *types.Entity) (Row, error) {
	props, err := json.Marshal(e.Properties)
	if err != nil {
		return nil, fmt.Errorf("encode entity %s properties: %w", e.ID(), err)
	}
	row := Row{
		"entity_id":       string(e.ID()),
		"edition_id":      e.Metadata.RecordID.EditionID,
		"entity_type_id":  string(e.Metadata.EntityTypeID),
		"label":           subgraph.EntityLabel(sg, e),
		"archived":        e.Metadata.Archived,
		"properties":      string(props),
		"left_entity_id":  nil,
		"right_entity_id": nil,
	}
	if e.LinkData != nil {
		row["left_entity_id"] = string(e.LinkData.LeftEntityID)
		row["right_entity_id"] = string(e.LinkData.RightEntityID)
	}
	if tv := e.Metadata.TemporalVersioning; tv != nil {
		row["decision_time_start"] = boundValue(tv.DecisionTime.Start)
		row["decision_time_end"] = boundValue(tv.DecisionTime.End)
		row["transaction_time_start"] = boundValue(tv.TransactionTime.Start)
		row["transaction_time_end"] = boundValue(tv.TransactionTime.End)
	}
	return row, nil
}

func relationshipRow(source string, at subgraph.RevisionKey, edge subgraph.OutwardEdge) (Row, error) {
	switch {
	case edge.Kind.IsOntologyEdge():
		target, ok := edge.RightEndpoint.(subgraph.OntologyEndpoint)
		if !ok {
			return nil, fmt.Errorf("%w: %s from %s must point at an ontology type", ErrUnsupportedEdge, edge.Kind, source)
		}
		version, ok := at.Version()
		if !ok {
			return nil, fmt.Errorf("%w: %s from %s has non-numeric revision %q", ErrUnsupportedEdge, edge.Kind, source, at)
		}
		return Row{
			"source": ontologyID(types.BaseURL(source), version),
			"target": ontologyEndpointID(target),
		}, nil

	case edge.Kind == types.IsOfType:
		target, ok := edge.RightEndpoint.(subgraph.OntologyEndpoint)
		if !ok {
			return nil, fmt.Errorf("%w: %s from %s must point at an entity type", ErrUnsupportedEdge, edge.Kind, source)
		}
		return Row{"source": source, "target": ontologyEndpointID(target)}, nil

	case edge.Kind == types.HasLeftEntity, edge.Kind == types.HasRightEntity:
		target, ok := edge.RightEndpoint.(subgraph.EntityEndpoint)
		if !ok {
			return nil, fmt.Errorf("%w: %s from %s must point at an entity", ErrUnsupportedEdge, edge.Kind, source)
		}
		row := Row{
			"source":         source,
			"target":         string(target.EntityID),
			"at":             string(at),
			"interval_start": nil,
			"interval_end":   nil,
		}
		if target.Interval != nil {
			row["interval_start"] = boundValue(target.Interval.Start)
			row["interval_end"] = boundValue(target.Interval.End)
		}
		return row, nil

	default:
		return nil, fmt.Errorf("%w: kind %q", ErrUnsupportedEdge, edge.Kind)
	}
}

func ontologyID(base types.BaseURL, version uint64) string {
	return fmt.Sprintf("%sv/%d", base, version)
}

func ontologyEndpointID(ep subgraph.OntologyEndpoint) string {
	version, _ := ep.RevisionID.Version()
	return ontologyID(ep.BaseID, version)
}

// boundValue stores a bound limit as an RFC 3339 string; unbounded becomes null.
func boundValue(b temporal.Bound) any {
	if b.IsUnbounded() {
		return nil
	}
	return b.Limit.UTC().Format(time.RFC3339Nano)
}

type relationshipSet struct {
	rows map[types.EdgeKind]map[string]Row
}

func newRelationshipSet() *relationshipSet {
	return &relationshipSet{rows: make(map[types.EdgeKind]map[string]Row)}
}

func (s *relationshipSet) add(kind types.EdgeKind, row Row) {
	byKey, ok := s.rows[kind]
	if !ok {
		byKey = make(map[string]Row)
		s.rows[kind] = byKey
	}
	byKey[rowKey(row)] = row
}

func (s *relationshipSet) sorted() map[types.EdgeKind][]Row {
	out := make(map[types.EdgeKind][]Row, len(s.rows))
	for kind, byKey := range s.rows {
		keys := make([]string, 0, len(byKey))
		for k := range byKey {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		rows := make([]Row, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, byKey[k])
		}
		out[kind] = rows
	}
	return out
}

func rowKey(row Row) string {
	parts := []string{fmt.Sprint(row["source"]), fmt.Sprint(row["target"])}
	if at, ok := row["at"]; ok {
		parts = append(parts, fmt.Sprint(at))
	}
	if start, ok := row["interval_start"]; ok {
		parts = append(parts, fmt.Sprint(start), fmt.Sprint(row["interval_end"]))
	}
	return strings.Join(parts, "\x00")
}
