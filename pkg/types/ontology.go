package types

import (
	"encoding/json"
	"time"

	"github.com/soundprediction/blockgraph/pkg/temporal"
)

// LinkEntityTypeURL is the entity type every link entity type conventionally inherits from.
const LinkEntityTypeURL VersionedURL = "https://blockprotocol.org/@blockprotocol/types/entity-type/link/v/1"

// Ref is a JSON-Schema style reference to another ontology type.
type Ref struct {
	Ref VersionedURL `json:"$ref"`
}

// DataTypeSchema describes a primitive value and its constraints.
type DataTypeSchema struct {
	Kind        OntologyTypeKind `json:"kind"`
	ID          VersionedURL     `json:"$id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Type        string           `json:"type"`
	// Constraints holds any further keywords (minimum, pattern, const...) verbatim.
	Constraints map[string]any `json:"-"`
}

var dataTypeSchemaKeys = []string{"kind", "$id", "title", "description", "type"}

// MarshalJSON flattens Constraints next to the named keywords.
func (d DataTypeSchema) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Constraints)+len(dataTypeSchemaKeys))
	for k, v := range d.Constraints {
		out[k] = v
	}
	out["kind"] = d.Kind
	out["$id"] = d.ID
	out["title"] = d.Title
	out["type"] = d.Type
	if d.Description != "" {
		out["description"] = d.Description
	}
	return json.Marshal(out)
}

// UnmarshalJSON collects unnamed keywords into Constraints.
func (d *DataTypeSchema) UnmarshalJSON(data []byte) error {
	type plain DataTypeSchema
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range dataTypeSchemaKeys {
		delete(raw, k)
	}
	if len(raw) > 0 {
		p.Constraints = raw
	}
	*d = DataTypeSchema(p)
	return nil
}

// PropertyValuesVariant classifies one branch of a property type's oneOf.
type PropertyValuesVariant int

const (
	InvalidPropertyValues PropertyValuesVariant = iota
	DataTypeReferenceValues
	PropertyObjectValues
	ArrayValues
)

// PropertyValues is one branch of a property type's oneOf: a data type reference,
// an object of nested property types, or an array of further PropertyValues.
type PropertyValues struct {
	Ref        VersionedURL                     `json:"$ref,omitempty"`
	Type       string                           `json:"type,omitempty"`
	Properties map[BaseURL]PropertyValueOrArray `json:"properties,omitempty"`
	Required   []BaseURL                        `json:"required,omitempty"`
	Items      *OneOf                           `json:"items,omitempty"`
	MinItems   *int                             `json:"minItems,omitempty"`
	MaxItems   *int                             `json:"maxItems,omitempty"`
}

// Variant classifies the branch.
func (p PropertyValues) Variant() PropertyValuesVariant {
	switch {
	case p.Ref != "":
		return DataTypeReferenceValues
	case p.Type == "object":
		return PropertyObjectValues
	case p.Type == "array" && p.Items != nil:
		return ArrayValues
	default:
		return InvalidPropertyValues
	}
}

// OneOf wraps a list of PropertyValues, as used by array items.
type OneOf struct {
	OneOf []PropertyValues `json:"oneOf"`
}

// PropertyValueOrArray references a property type directly or as an array of references.
type PropertyValueOrArray struct {
	Ref      VersionedURL `json:"$ref,omitempty"`
	Type     string       `json:"type,omitempty"`
	Items    *Ref         `json:"items,omitempty"`
	MinItems *int         `json:"minItems,omitempty"`
	MaxItems *int         `json:"maxItems,omitempty"`
}

// Reference returns the referenced property type whichever form is used.
func (p PropertyValueOrArray) Reference() VersionedURL {
	if p.Ref != "" {
		return p.Ref
	}
	if p.Items != nil {
		return p.Items.Ref
	}
	return ""
}

// PropertyTypeSchema describes the shape of a property value.
type PropertyTypeSchema struct {
	Kind        OntologyTypeKind `json:"kind"`
	ID          VersionedURL     `json:"$id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	OneOf       []PropertyValues `json:"oneOf"`
}

// LinkConstraint restricts the destinations of one link entity type.
// An Items value without OneOf allows any destination.
type LinkConstraint struct {
	Type     string    `json:"type"`
	Items    LinkItems `json:"items"`
	MinItems *int      `json:"minItems,omitempty"`
	MaxItems *int      `json:"maxItems,omitempty"`
	Ordered  bool      `json:"ordered,omitempty"`
}

// LinkItems lists the allowed destination entity types.
type LinkItems struct {
	OneOf []Ref `json:"oneOf,omitempty"`
}

// EntityTypeSchema describes property constraints, links and inheritance of an entity.
type EntityTypeSchema struct {
	Kind          OntologyTypeKind                 `json:"kind"`
	ID            VersionedURL                     `json:"$id"`
	Title         string                           `json:"title"`
	Description   string                           `json:"description,omitempty"`
	Type          string                           `json:"type"`
	AllOf         []Ref                            `json:"allOf,omitempty"`
	Properties    map[BaseURL]PropertyValueOrArray `json:"properties"`
	Required      []BaseURL                        `json:"required,omitempty"`
	Links         map[VersionedURL]LinkConstraint  `json:"links,omitempty"`
	LabelProperty BaseURL                          `json:"labelProperty,omitempty"`
	Examples      []map[BaseURL]any                `json:"examples,omitempty"`
}

// OntologyTemporalMetadata records when a type revision was current in the store.
type OntologyTemporalMetadata struct {
	TransactionTime temporal.Interval `json:"transactionTime"`
}

// OntologyElementMetadata is shared by all ontology element kinds.
type OntologyElementMetadata struct {
	RecordID           OntologyTypeRecordID      `json:"recordId"`
	FetchedAt          *time.Time                `json:"fetchedAt,omitempty"`
	TemporalVersioning *OntologyTemporalMetadata `json:"temporalVersioning,omitempty"`
}

// DataType is a data type schema with its metadata.
type DataType struct {
	Schema   DataTypeSchema          `json:"schema"`
	Metadata OntologyElementMetadata `json:"metadata"`
}

// PropertyType is a property type schema with its metadata.
type PropertyType struct {
	Schema   PropertyTypeSchema      `json:"schema"`
	Metadata OntologyElementMetadata `json:"metadata"`
}

// EntityType is an entity type schema with its metadata.
type EntityType struct {
	Schema   EntityTypeSchema        `json:"schema"`
	Metadata OntologyElementMetadata `json:"metadata"`
}

// OntologyType is implemented by *DataType, *PropertyType and *EntityType.
type OntologyType interface {
	TypeKind() OntologyTypeKind
	TypeID() VersionedURL
	Title() string
}

func (d *DataType) TypeKind() OntologyTypeKind     { return DataTypeKind }
func (d *DataType) TypeID() VersionedURL           { return d.Schema.ID }
func (d *DataType) Title() string                  { return d.Schema.Title }
func (p *PropertyType) TypeKind() OntologyTypeKind { return PropertyTypeKind }
func (p *PropertyType) TypeID() VersionedURL       { return p.Schema.ID }
func (p *PropertyType) Title() string              { return p.Schema.Title }
func (e *EntityType) TypeKind() OntologyTypeKind   { return EntityTypeKind }
func (e *EntityType) TypeID() VersionedURL         { return e.Schema.ID }
func (e *EntityType) Title() string                { return e.Schema.Title }

// NewDataType wraps a schema with metadata derived from its $id.
func NewDataType(schema DataTypeSchema) (*DataType, error) {
	rid, err := schema.ID.RecordID()
	if err != nil {
		return nil, err
	}
	schema.Kind = DataTypeKind
	return &DataType{Schema: schema, Metadata: OntologyElementMetadata{RecordID: rid}}, nil
}

// NewPropertyType wraps a schema with metadata derived from its $id.
func NewPropertyType(schema PropertyTypeSchema) (*PropertyType, error) {
	rid, err := schema.ID.RecordID()
	if err != nil {
		return nil, err
	}
	schema.Kind = PropertyTypeKind
	return &PropertyType{Schema: schema, Metadata: OntologyElementMetadata{RecordID: rid}}, nil
}

// NewEntityType wraps a schema with metadata derived from its $id.
func NewEntityType(schema EntityTypeSchema) (*EntityType, error) {
	rid, err := schema.ID.RecordID()
	if err != nil {
		return nil, err
	}
	schema.Kind = EntityTypeKind
	if schema.Type == "" {
		schema.Type = "object"
	}
	return &EntityType{Schema: schema, Metadata: OntologyElementMetadata{RecordID: rid}}, nil
}
