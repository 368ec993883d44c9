package graphsink

import (
	"fmt"

	"github.com/soundprediction/blockgraph/pkg/subgraph"
	"github.com/soundprediction/blockgraph/pkg/types"
)

const (
	entityLabel       = "Entity"
	ontologyTypeLabel = "OntologyType"
)

var ontologyKindLabels = map[subgraph.VertexKind]string{
	subgraph.DataTypeVertexKind:     "DataType",
	subgraph.PropertyTypeVertexKind: "PropertyType",
	subgraph.EntityTypeVertexKind:   "EntityType",
}

// IndexQueries returns the schema statements Export relies on for MERGE lookups.
func IndexQueries() []string {
	return []string{
		"CREATE CONSTRAINT entity_id_unique IF NOT EXISTS FOR (n:Entity) REQUIRE n.entity_id IS UNIQUE",
		"CREATE CONSTRAINT ontology_type_id_unique IF NOT EXISTS FOR (n:OntologyType) REQUIRE n.id IS UNIQUE",
		"CREATE INDEX entity_type_id IF NOT EXISTS FOR (n:Entity) ON (n.entity_type_id)",
		"CREATE INDEX ontology_type_base_url IF NOT EXISTS FOR (n:OntologyType) ON (n.base_url)",
	}
}

// OntologyTypeQuery upserts ontology type rows of one kind.
// Labels cannot be parameters, so the kind label is formatted in.
func OntologyTypeQuery(kind subgraph.VertexKind) (string, error) {
	label, ok := ontologyKindLabels[kind]
	if !ok {
		return "", fmt.Errorf("no ontology label for vertex kind %q", kind)
	}
	return fmt.Sprintf(`
		UNWIND $rows AS row
		MERGE (n:%s {id: row.id})
		SET n:%s,
			n.base_url = row.base_url,
			n.version = row.version,
			n.title = row.title,
			n.kind = row.kind,
			n.schema = row.schema,
			n.exported_at = $exported_at
	`, ontologyTypeLabel, label), nil
}

// EntityQuery upserts entity rows.
const EntityQuery = `
		UNWIND $rows AS row
		MERGE (n:Entity {entity_id: row.entity_id})
		SET n.edition_id = row.edition_id,
			n.entity_type_id = row.entity_type_id,
			n.label = row.label,
			n.archived = row.archived,
			n.properties = row.properties,
			n.left_entity_id = row.left_entity_id,
			n.right_entity_id = row.right_entity_id,
			n.decision_time_start = row.decision_time_start,
			n.decision_time_end = row.decision_time_end,
			n.transaction_time_start = row.transaction_time_start,
			n.transaction_time_end = row.transaction_time_end,
			n.exported_at = $exported_at
	`

// RelationshipQuery returns the query that merges relationships of kind. Link
// endpoint relationships are keyed by their as-of revision and carry the interval
// over which they held; the others are keyed by their endpoints alone.
func RelationshipQuery(kind types.EdgeKind) (string, error) {
	if err := kind.Validate(); err != nil {
		return "", err
	}
	sourceLabel, sourceKey := entityLabel, "entity_id"
	targetLabel, targetKey := entityLabel, "entity_id"
	switch {
	case kind.IsOntologyEdge():
		sourceLabel, sourceKey = ontologyTypeLabel, "id"
		targetLabel, targetKey = ontologyTypeLabel, "id"
	case kind == types.IsOfType:
		targetLabel, targetKey = ontologyTypeLabel, "id"
	}

	if kind == types.HasLeftEntity || kind == types.HasRightEntity {
		return fmt.Sprintf(`
		UNWIND $rows AS row
		MATCH (s:%s {%s: row.source})
		MATCH (t:%s {%s: row.target})
		MERGE (s)-[r:%s {at: row.at}]->(t)
		SET r.interval_start = row.interval_start,
			r.interval_end = row.interval_end,
			r.exported_at = $exported_at
	`, sourceLabel, sourceKey, targetLabel, targetKey, kind), nil
	}
	return fmt.Sprintf(`
		UNWIND $rows AS row
		MATCH (s:%s {%s: row.source})
		MATCH (t:%s {%s: row.target})
		MERGE (s)-[r:%s]->(t)
		SET r.exported_at = $exported_at
	`, sourceLabel, sourceKey, targetLabel, targetKey, kind), nil
}
