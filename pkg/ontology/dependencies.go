package ontology

import (
	"slices"
	"strings"

	"github.com/soundprediction/blockgraph/pkg/types"
)

// Dependency is one reference from an ontology type to another.
type Dependency struct {
	Kind   types.EdgeKind     `json:"kind" yaml:"kind"`
	Target types.VersionedURL `json:"target" yaml:"target"`
}

// Dependencies returns every type t refers to, deduplicated and sorted by kind then target.
// Data types have no dependencies.
func Dependencies(t types.OntologyType) []Dependency {
	var deps []Dependency
	switch tt := t.(type) {
	case *types.EntityType:
		deps = entityTypeDependencies(&tt.Schema)
	case *types.PropertyType:
		for _, values := range tt.Schema.OneOf {
			deps = appendPropertyValueDependencies(deps, values)
		}
	}
	return normalize(deps)
}

// DependencyURLs returns the distinct targets of Dependencies in sorted order.
func DependencyURLs(t types.OntologyType) []types.VersionedURL {
	deps := Dependencies(t)
	out := make([]types.VersionedURL, 0, len(deps))
	for _, d := range deps {
		out = append(out, d.Target)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func entityTypeDependencies(s *types.EntityTypeSchema) []Dependency {
	var deps []Dependency
	for _, parent := range s.AllOf {
		deps = append(deps, Dependency{Kind: types.InheritsFrom, Target: parent.Ref})
	}
	for _, prop := range s.Properties {
		if ref := prop.Reference(); ref != "" {
			deps = append(deps, Dependency{Kind: types.ConstrainsPropertiesOn, Target: ref})
		}
	}
	for link, constraint := range s.Links {
		deps = append(deps, Dependency{Kind: types.ConstrainsLinksOn, Target: link})
		for _, dest := range constraint.Items.OneOf {
			deps = append(deps, Dependency{Kind: types.ConstrainsLinkDestinationsOn, Target: dest.Ref})
		}
	}
	return deps
}

func appendPropertyValueDependencies(deps []Dependency, values types.PropertyValues) []Dependency {
	switch values.Variant() {
	case types.DataTypeReferenceValues:
		deps = append(deps, Dependency{Kind: types.ConstrainsValuesOn, Target: values.Ref})
	case types.PropertyObjectValues:
		for _, prop := range values.Properties {
			if ref := prop.Reference(); ref != "" {
				deps = append(deps, Dependency{Kind: types.ConstrainsPropertiesOn, Target: ref})
			}
		}
	case types.ArrayValues:
		for _, nested := range values.Items.OneOf {
			deps = appendPropertyValueDependencies(deps, nested)
		}
	}
	return deps
}

func normalize(deps []Dependency) []Dependency {
	slices.SortFunc(deps, func(a, b Dependency) int {
		if c := strings.Compare(string(a.Kind), string(b.Kind)); c != 0 {
			return c
		}
		return strings.Compare(string(a.Target), string(b.Target))
	})
	return slices.Compact(deps)
}
