// Package types defines the core data types shared by every blockgraph package.
//
// This package contains:
//   - BaseURL / VersionedURL: identifiers of ontology types and their revisions
//   - DataType, PropertyType, EntityType: ontology elements with their schemas
//   - Entity and LinkData: versioned entity revisions, some of which link two others
//   - TemporalAxes: the pinned/variable axis configuration a subgraph was resolved with
//
// # Identifiers
//
// A VersionedURL is a BaseURL followed by "v/<version>":
//
//	base, version, err := types.ParseVersionedURL("https://example.com/types/entity-type/person/v/2")
//	// base == "https://example.com/types/entity-type/person/", version == 2
//
// Versions compare numerically, never as strings.
//
// # Validation
//
// Identifiers, entities and temporal axes provide Validate() methods returning
// errors that wrap the sentinel errors of this package.
package types
