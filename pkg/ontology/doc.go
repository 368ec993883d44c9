// Package ontology validates fetched ontology type schemas and extracts the
// types each one depends on.
//
// A Validator holds one JSON Schema per ontology kind. The meta-schemas are
// reflected from Go shape structs and compiled once:
//
//	v, err := ontology.NewValidator(logger)
//	if err != nil {
//	    return err
//	}
//	t, err := v.Validate(raw)
//	if errors.Is(err, ontology.ErrSchemaValidation) {
//	    // the schema does not have the shape its kind requires
//	}
//
// Dependencies lists every versioned URL a type refers to, tagged with the
// edge kind that reference produces in a subgraph.
package ontology
