package subgraph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/soundprediction/blockgraph/pkg/types"
)

// nameLikeProperties are property type slugs tried, in order, when an entity type
// declares no label property.
var nameLikeProperties = []string{"name", "preferred-name", "display-name", "title", "shortname"}

// EntityLabel derives a human readable label for an entity: the value of its type's
// label property (or an ancestor's), then the first name-like property, then the
// entity type title followed by the start of the entity's id.
func EntityLabel(sg *Subgraph, e *types.Entity) string {
	typeID := e.Metadata.EntityTypeID
	entityType := GetEntityTypeByID(sg, typeID)

	if entityType != nil {
		candidates := append([]*types.EntityType{entityType}, GetEntityTypeAncestors(sg, typeID)...)
		for _, et := range candidates {
			if et.Schema.LabelProperty == "" {
				continue
			}
			if label, ok := stringValue(e.Properties[et.Schema.LabelProperty]); ok {
				return label
			}
		}
	}

	bases := make([]types.BaseURL, 0, len(e.Properties))
	for base := range e.Properties {
		bases = append(bases, base)
	}
	slices.Sort(bases)
	for _, slug := range nameLikeProperties {
		for _, base := range bases {
			if propertySlug(base) != slug {
				continue
			}
			if label, ok := stringValue(e.Properties[base]); ok {
				return label
			}
		}
	}

	title := "Entity"
	if entityType != nil && entityType.Schema.Title != "" {
		title = entityType.Schema.Title
	}
	return title + "-" + shortID(e.ID())
}

// propertySlug returns the last path segment of a property type base URL.
func propertySlug(base types.BaseURL) string {
	trimmed := strings.TrimSuffix(string(base), "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

func stringValue(v any) (string, bool) {
	switch vv := v.(type) {
	case string:
		s := strings.TrimSpace(vv)
		return s, s != ""
	case float64, int, int64:
		return fmt.Sprint(vv), true
	default:
		return "", false
	}
}

// shortID returns the first five characters of the id's uuid part.
func shortID(id types.EntityID) string {
	s := string(id)
	if i := strings.LastIndex(s, "~"); i >= 0 {
		s = s[i+1:]
	}
	if r := []rune(s); len(r) > 5 {
		return string(r[:5])
	}
	return s
}
