package ontology

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"

	"github.com/soundprediction/blockgraph/pkg/types"
)

var (
	// ErrSchemaValidation is returned when a schema does not match the meta-schema of its kind.
	ErrSchemaValidation = errors.New("ontology schema validation failed")
	// ErrMalformedSchema is returned when the input is not a JSON object with a kind.
	ErrMalformedSchema = errors.New("malformed ontology schema")
)

// Shapes the meta-schemas are reflected from. They are deliberately shallow:
// nested property values are checked structurally after decoding.

type refShape struct {
	Ref string `json:"$ref" jsonschema:"format=uri"`
}

type valueOrArrayShape struct {
	Ref      string    `json:"$ref,omitempty" jsonschema:"format=uri"`
	Type     string    `json:"type,omitempty" jsonschema:"enum=array"`
	Items    *refShape `json:"items,omitempty"`
	MinItems *int      `json:"minItems,omitempty" jsonschema:"minimum=0"`
	MaxItems *int      `json:"maxItems,omitempty" jsonschema:"minimum=0"`
}

type propertyValuesShape struct {
	Ref        string                       `json:"$ref,omitempty" jsonschema:"format=uri"`
	Type       string                       `json:"type,omitempty" jsonschema:"enum=object,enum=array"`
	Properties map[string]valueOrArrayShape `json:"properties,omitempty"`
	Required   []string                     `json:"required,omitempty"`
	Items      map[string]any               `json:"items,omitempty"`
}

type linkItemsShape struct {
	OneOf []refShape `json:"oneOf,omitempty" jsonschema:"minItems=1"`
}

type linkShape struct {
	Type     string         `json:"type" jsonschema:"enum=array"`
	Items    linkItemsShape `json:"items"`
	MinItems *int           `json:"minItems,omitempty" jsonschema:"minimum=0"`
	MaxItems *int           `json:"maxItems,omitempty" jsonschema:"minimum=0"`
	Ordered  bool           `json:"ordered,omitempty"`
}

type dataTypeShape struct {
	Kind        string `json:"kind" jsonschema:"enum=dataType"`
	ID          string `json:"$id" jsonschema:"format=uri"`
	Title       string `json:"title" jsonschema:"minLength=1"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type" jsonschema:"enum=string,enum=number,enum=boolean,enum=object,enum=array,enum=null"`
}

type propertyTypeShape struct {
	Kind        string                `json:"kind" jsonschema:"enum=propertyType"`
	ID          string                `json:"$id" jsonschema:"format=uri"`
	Title       string                `json:"title" jsonschema:"minLength=1"`
	Description string                `json:"description,omitempty"`
	OneOf       []propertyValuesShape `json:"oneOf" jsonschema:"minItems=1"`
}

type entityTypeShape struct {
	Kind          string                       `json:"kind" jsonschema:"enum=entityType"`
	ID            string                       `json:"$id" jsonschema:"format=uri"`
	Title         string                       `json:"title" jsonschema:"minLength=1"`
	Description   string                       `json:"description,omitempty"`
	Type          string                       `json:"type" jsonschema:"enum=object"`
	AllOf         []refShape                   `json:"allOf,omitempty"`
	Properties    map[string]valueOrArrayShape `json:"properties"`
	Required      []string                     `json:"required,omitempty"`
	Links         map[string]linkShape         `json:"links,omitempty"`
	LabelProperty string                       `json:"labelProperty,omitempty" jsonschema:"format=uri"`
}

// Validator checks raw ontology schemas against the meta-schema of their kind.
// It is safe for concurrent use.
type Validator struct {
	schemas map[types.OntologyTypeKind]*gojsonschema.Schema
	logger  *slog.Logger
}

// NewValidator reflects and compiles the meta-schemas.
func NewValidator(logger *slog.Logger) (*Validator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Validator{
		schemas: make(map[types.OntologyTypeKind]*gojsonschema.Schema, 3),
		logger:  logger,
	}
	shapes := map[types.OntologyTypeKind]any{
		types.DataTypeKind:     &dataTypeShape{},
		types.PropertyTypeKind: &propertyTypeShape{},
		types.EntityTypeKind:   &entityTypeShape{},
	}
	for kind, shape := range shapes {
		raw, err := MetaSchema(shape)
		if err != nil {
			return nil, fmt.Errorf("failed to reflect %s meta-schema: %w", kind, err)
		}
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s meta-schema: %w", kind, err)
		}
		v.schemas[kind] = compiled
	}
	return v, nil
}

// MetaSchema reflects a shape struct into a JSON Schema document.
func MetaSchema(shape any) ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
		Anonymous:                 true,
	}
	schema := reflector.Reflect(shape)
	schema.Version = ""
	return json.Marshal(schema)
}

// Validate checks raw against the meta-schema for its declared kind and decodes it.
// Every failure wraps ErrSchemaValidation or ErrMalformedSchema.
func (v *Validator) Validate(raw []byte) (types.OntologyType, error) {
	var probe struct {
		Kind types.OntologyTypeKind `json:"kind"`
		ID   types.VersionedURL     `json:"$id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSchema, err)
	}
	if err := probe.Kind.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSchema, err)
	}
	if err := probe.ID.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}

	result, err := v.schemas[probe.Kind].Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedSchema, probe.ID, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		v.logger.Debug("ontology schema rejected",
			"id", probe.ID,
			"kind", probe.Kind,
			"errors", len(msgs))
		return nil, fmt.Errorf("%w: %s (%s): %s", ErrSchemaValidation, probe.ID, probe.Kind, strings.Join(msgs, "; "))
	}

	t, err := decode(probe.Kind, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchemaValidation, probe.ID, err)
	}
	if err := checkReferences(t); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchemaValidation, probe.ID, err)
	}
	return t, nil
}

func decode(kind types.OntologyTypeKind, raw []byte) (types.OntologyType, error) {
	switch kind {
	case types.DataTypeKind:
		var s types.DataTypeSchema
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return types.NewDataType(s)
	case types.PropertyTypeKind:
		var s types.PropertyTypeSchema
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		for i, values := range s.OneOf {
			if err := checkPropertyValues(values); err != nil {
				return nil, fmt.Errorf("oneOf[%d]: %w", i, err)
			}
		}
		return types.NewPropertyType(s)
	case types.EntityTypeKind:
		var s types.EntityTypeSchema
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return types.NewEntityType(s)
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownTypeKind, kind)
	}
}

func checkPropertyValues(values types.PropertyValues) error {
	switch values.Variant() {
	case types.DataTypeReferenceValues:
		return nil
	case types.PropertyObjectValues:
		for base, ref := range values.Properties {
			if ref.Reference() == "" {
				return fmt.Errorf("property %s has no $ref", base)
			}
		}
		return nil
	case types.ArrayValues:
		if len(values.Items.OneOf) == 0 {
			return errors.New("array items need at least one oneOf branch")
		}
		for i, nested := range values.Items.OneOf {
			if err := checkPropertyValues(nested); err != nil {
				return fmt.Errorf("items.oneOf[%d]: %w", i, err)
			}
		}
		return nil
	default:
		return errors.New("value is neither a data type reference, an object nor an array")
	}
}

func checkReferences(t types.OntologyType) error {
	for _, dep := range Dependencies(t) {
		if err := dep.Target.Validate(); err != nil {
			return fmt.Errorf("%s reference: %w", dep.Kind, err)
		}
	}
	if et, ok := t.(*types.EntityType); ok {
		for base := range et.Schema.Properties {
			if err := base.Validate(); err != nil {
				return fmt.Errorf("property key: %w", err)
			}
		}
	}
	return nil
}
