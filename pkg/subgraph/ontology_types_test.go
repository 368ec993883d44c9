package subgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/blockgraph/pkg/types"
)

const (
	textURL     types.VersionedURL = "https://example.com/dt/text/v/1"
	nameURL     types.VersionedURL = "https://example.com/pt/name/v/1"
	personV1URL types.VersionedURL = "https://example.com/et/person/v/1"
	personV2URL types.VersionedURL = "https://example.com/et/person/v/2"
	employeeURL types.VersionedURL = "https://example.com/et/employee/v/1"
	knowsURL    types.VersionedURL = "https://example.com/et/knows/v/1"
	managerURL  types.VersionedURL = "https://example.com/et/manages/v/1"
)

func mustEntityType(t *testing.T, schema types.EntityTypeSchema) *types.EntityType {
	t.Helper()
	et, err := types.NewEntityType(schema)
	require.NoError(t, err)
	return et
}

func ontologySubgraph(t *testing.T) *Subgraph {
	t.Helper()
	text, err := types.NewDataType(types.DataTypeSchema{ID: textURL, Title: "Text", Type: "string"})
	require.NoError(t, err)
	name, err := types.NewPropertyType(types.PropertyTypeSchema{
		ID:    nameURL,
		Title: "Name",
		OneOf: []types.PropertyValues{{Ref: textURL}},
	})
	require.NoError(t, err)

	personProps := map[types.BaseURL]types.PropertyValueOrArray{nameURL.BaseURL(): {Ref: nameURL}}
	sg := New(nil)
	require.NoError(t, AddOntologyTypesToSubgraphByMutation(sg,
		text,
		name,
		mustEntityType(t, types.EntityTypeSchema{ID: personV1URL, Title: "Person", Properties: personProps}),
		mustEntityType(t, types.EntityTypeSchema{ID: personV2URL, Title: "Person", Properties: personProps}),
		mustEntityType(t, types.EntityTypeSchema{ID: employeeURL, Title: "Employee", AllOf: []types.Ref{{Ref: personV2URL}}}),
		mustEntityType(t, types.EntityTypeSchema{ID: knowsURL, Title: "Knows", AllOf: []types.Ref{{Ref: types.LinkEntityTypeURL}}}),
		mustEntityType(t, types.EntityTypeSchema{ID: managerURL, Title: "Manages", AllOf: []types.Ref{{Ref: knowsURL}}}),
	))
	return sg
}

func TestOntologyAccessors(t *testing.T) {
	sg := ontologySubgraph(t)

	assert.Len(t, GetDataTypes(sg), 1)
	assert.Len(t, GetPropertyTypes(sg), 1)
	assert.Len(t, GetEntityTypes(sg), 5)

	require.NotNil(t, GetPropertyTypeByID(sg, nameURL))
	assert.Equal(t, "Name", GetPropertyTypeByID(sg, nameURL).Title())
	assert.Nil(t, GetEntityTypeByID(sg, "https://example.com/et/person/v/3"))
	assert.Nil(t, GetDataTypeByID(sg, nameURL), "a property type is not a data type")
	assert.Nil(t, GetEntityTypeByID(sg, "not a url"))

	persons := GetEntityTypesByBaseURL(sg, personV1URL.BaseURL())
	require.Len(t, persons, 2)
	assert.Equal(t, personV1URL, persons[0].TypeID())
	assert.Equal(t, personV2URL, persons[1].TypeID())
	assert.Len(t, GetDataTypesByBaseURL(sg, textURL.BaseURL()), 1)
	assert.Empty(t, GetPropertyTypesByBaseURL(sg, textURL.BaseURL()))

	dt, err := GetDataTypeByVertexID(sg, VertexID{BaseID: string(textURL.BaseURL()), RevisionID: "1"})
	require.NoError(t, err)
	assert.Equal(t, "Text", dt.Title())
}

func TestOntologyEdgesAreRecordedBothWays(t *testing.T) {
	sg := ontologySubgraph(t)

	nameBase := string(nameURL.BaseURL())
	textBase := string(textURL.BaseURL())
	personBase := string(personV1URL.BaseURL())

	assert.True(t, sg.Edges.contains(nameBase, "1", OutwardEdge{
		Kind:          types.ConstrainsValuesOn,
		RightEndpoint: OntologyEndpoint{BaseID: textURL.BaseURL(), RevisionID: "1"},
	}))
	assert.True(t, sg.Edges.contains(textBase, "1", OutwardEdge{
		Kind:          types.ConstrainsValuesOn,
		Reversed:      true,
		RightEndpoint: OntologyEndpoint{BaseID: nameURL.BaseURL(), RevisionID: "1"},
	}))
	assert.True(t, sg.Edges.contains(personBase, "2", OutwardEdge{
		Kind:          types.ConstrainsPropertiesOn,
		RightEndpoint: OntologyEndpoint{BaseID: nameURL.BaseURL(), RevisionID: "1"},
	}))
	assert.True(t, sg.Edges.contains(personBase, "2", OutwardEdge{
		Kind:          types.InheritsFrom,
		Reversed:      true,
		RightEndpoint: OntologyEndpoint{BaseID: employeeURL.BaseURL(), RevisionID: "1"},
	}))
	assert.Len(t, sg.Edges[nameBase]["1"], 3, "one forward edge and two reversed from each person version")
}

func TestGetEntityTypeAncestors(t *testing.T) {
	sg := ontologySubgraph(t)

	ancestors := GetEntityTypeAncestors(sg, employeeURL)
	require.Len(t, ancestors, 1)
	assert.Equal(t, personV2URL, ancestors[0].TypeID())

	// the link entity type itself is not in the subgraph
	ancestors = GetEntityTypeAncestors(sg, managerURL)
	require.Len(t, ancestors, 1)
	assert.Equal(t, knowsURL, ancestors[0].TypeID())

	assert.Empty(t, GetEntityTypeAncestors(sg, personV1URL))
}

func TestGetEntityTypeAncestorsToleratesCycles(t *testing.T) {
	a := types.VersionedURL("https://example.com/et/a/v/1")
	b := types.VersionedURL("https://example.com/et/b/v/1")
	sg := New(nil)
	require.NoError(t, AddOntologyTypesToSubgraphByMutation(sg,
		mustEntityType(t, types.EntityTypeSchema{ID: a, Title: "A", AllOf: []types.Ref{{Ref: b}}}),
		mustEntityType(t, types.EntityTypeSchema{ID: b, Title: "B", AllOf: []types.Ref{{Ref: a}}}),
	))

	ancestors := GetEntityTypeAncestors(sg, a)
	require.Len(t, ancestors, 1)
	assert.Equal(t, b, ancestors[0].TypeID())
	assert.False(t, IsLinkEntityType(sg, a))
}

func TestIsLinkEntityType(t *testing.T) {
	sg := ontologySubgraph(t)

	assert.True(t, IsLinkEntityType(sg, types.LinkEntityTypeURL))
	assert.True(t, IsLinkEntityType(sg, knowsURL))
	assert.True(t, IsLinkEntityType(sg, managerURL))
	assert.False(t, IsLinkEntityType(sg, personV2URL))
	assert.False(t, IsLinkEntityType(sg, employeeURL))
}

func TestEdgesAtComparesVersionsNumerically(t *testing.T) {
	thing9 := types.VersionedURL("https://example.com/et/thing/v/9")
	thing10 := types.VersionedURL("https://example.com/et/thing/v/10")
	sg := New(nil)
	require.NoError(t, AddOntologyTypesToSubgraphByMutation(sg,
		mustEntityType(t, types.EntityTypeSchema{ID: thing9, Title: "Thing", AllOf: []types.Ref{{Ref: personV1URL}}}),
		mustEntityType(t, types.EntityTypeSchema{ID: thing10, Title: "Thing", AllOf: []types.Ref{{Ref: personV2URL}}}),
	))
	base := string(thing9.BaseURL())

	parentAt := func(key RevisionKey) RevisionKey {
		edges := EdgesAt(sg, base, key)
		require.Len(t, edges, 1)
		return edges[0].RightEndpoint.(OntologyEndpoint).RevisionID
	}
	assert.Equal(t, RevisionKey("1"), parentAt("9"))
	assert.Equal(t, RevisionKey("2"), parentAt("10"))
	assert.Equal(t, RevisionKey("2"), parentAt("12"))
	assert.Nil(t, EdgesAt(sg, base, "3"))
	assert.Nil(t, EdgesAt(sg, "https://example.com/et/missing/", "3"))

	edges := EdgesAt(sg, base, "10")
	edges[0].Reversed = true
	assert.False(t, sg.Edges[base]["10"][0].Reversed, "EdgesAt returns a copy")
}

func TestAddOntologyTypesRejectsBadInput(t *testing.T) {
	sg := New(nil)

	err := AddOntologyTypesToSubgraphByMutation(sg, nil)
	assert.ErrorIs(t, err, ErrInvalidVertex)

	bad := &types.EntityType{Schema: types.EntityTypeSchema{ID: "https://example.com/et/bad"}}
	err = AddOntologyTypesToSubgraphByMutation(sg, mustEntityType(t, types.EntityTypeSchema{ID: personV1URL, Title: "Person"}), bad)
	assert.ErrorIs(t, err, types.ErrInvalidVersionedURL)

	danglingRef := mustEntityType(t, types.EntityTypeSchema{
		ID:    employeeURL,
		Title: "Employee",
		AllOf: []types.Ref{{Ref: "https://example.com/et/person"}},
	})
	err = AddOntologyTypesToSubgraphByMutation(sg, danglingRef)
	assert.ErrorIs(t, err, types.ErrInvalidVersionedURL)

	assert.Empty(t, sg.Vertices)
	assert.Empty(t, sg.Edges)
}
