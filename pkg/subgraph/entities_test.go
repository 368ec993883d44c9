package subgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/blockgraph/pkg/temporal"
	"github.com/soundprediction/blockgraph/pkg/types"
)

func twoRevisionSubgraph(t *testing.T) (*Subgraph, *types.Entity, *types.Entity) {
	t.Helper()
	sg := newTemporalSubgraph()
	first := withDecisionTime(withEdition(newEntity("e"), "1"), temporal.ClosedOpen(ts(0), ts(10)))
	second := withDecisionTime(withEdition(newEntity("e"), "2"), temporal.From(ts(10)))
	require.NoError(t, AddEntitiesToSubgraphByMutation(sg, []*types.Entity{second, first}))
	return sg, first, second
}

func TestGetEntityRevisionAt(t *testing.T) {
	sg, first, second := twoRevisionSubgraph(t)

	tests := []struct {
		name string
		at   int
		want *types.Entity
	}{
		{"inside first", 5, first},
		{"inside second", 15, second},
		{"boundary belongs to second", 10, second},
		{"before history", -1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, tt.want, GetEntityRevisionAt(sg, "e", ts(tt.at)))
		})
	}

	assert.Same(t, first, GetEntityRevisionAtKey(sg, "e", RevisionKeyFromTime(ts(3))))
	assert.Nil(t, GetEntityRevisionAt(sg, "missing", ts(3)))
}

func TestGetEntityRevisionLatest(t *testing.T) {
	sg, _, second := twoRevisionSubgraph(t)
	assert.Same(t, second, GetEntityRevision(sg, "e"))
	assert.Same(t, second, GetEntity(sg, "e"))
	assert.Nil(t, GetEntity(sg, "missing"))
}

func TestGetEntityRevisionsByEntityID(t *testing.T) {
	sg, first, second := twoRevisionSubgraph(t)

	assert.Equal(t, []*types.Entity{first, second}, GetEntityRevisionsByEntityID(sg, "e", nil))

	later := temporal.ClosedOpen(ts(12), ts(20))
	assert.Equal(t, []*types.Entity{second}, GetEntityRevisionsByEntityID(sg, "e", &later))

	early := temporal.Closed(ts(5), ts(6))
	assert.Equal(t, []*types.Entity{first}, GetEntityRevisionsByEntityID(sg, "e", &early))

	spanning := temporal.Closed(ts(9), ts(10))
	assert.Equal(t, []*types.Entity{first, second}, GetEntityRevisionsByEntityID(sg, "e", &spanning))

	before := temporal.ClosedOpen(ts(-10), ts(0))
	assert.Empty(t, GetEntityRevisionsByEntityID(sg, "e", &before))
}

func TestGetEntitiesLatestOnly(t *testing.T) {
	sg, first, second := twoRevisionSubgraph(t)
	other := withDecisionTime(newEntity("f"), temporal.From(ts(0)))
	require.NoError(t, AddEntitiesToSubgraphByMutation(sg, []*types.Entity{other}))

	assert.Equal(t, []*types.Entity{first, second, other}, GetEntities(sg, false))
	assert.Equal(t, []*types.Entity{second, other}, GetEntities(sg, true))
}

func TestNonTemporalRevisionLookups(t *testing.T) {
	sg := New(nil)
	v1 := withEdition(newEntity("e"), "1")
	v2 := withEdition(newEntity("e"), "2")
	require.NoError(t, AddEntitiesToSubgraphByMutation(sg, []*types.Entity{v1, v2}))

	assert.Same(t, v2, GetEntityRevisionAt(sg, "e", ts(0)))
	assert.Same(t, v1, GetEntityRevisionAtKey(sg, "e", "1"))
	assert.Nil(t, GetEntityRevisionAtKey(sg, "e", "3"))

	window := temporal.ClosedOpen(ts(0), ts(1))
	assert.Len(t, GetEntityRevisionsByEntityID(sg, "e", &window), 2)
}

func TestGetByVertexIDKindMismatch(t *testing.T) {
	sg := New(nil)
	require.NoError(t, AddEntitiesToSubgraphByMutation(sg, []*types.Entity{newEntity("a")}))
	et, err := types.NewEntityType(types.EntityTypeSchema{ID: "https://example.com/et/person/v/1", Title: "Person"})
	require.NoError(t, err)
	require.NoError(t, AddOntologyTypesToSubgraphByMutation(sg, et))

	entityVertex := VertexID{BaseID: "a", RevisionID: "0"}
	typeVertex := VertexID{BaseID: "https://example.com/et/person/", RevisionID: "1"}

	got, err := GetEntityByVertexID(sg, entityVertex)
	require.NoError(t, err)
	assert.Equal(t, types.EntityID("a"), got.ID())

	_, err = GetEntityByVertexID(sg, typeVertex)
	assert.ErrorIs(t, err, ErrUnexpectedVertexKind)

	_, err = GetEntityTypeByVertexID(sg, entityVertex)
	assert.ErrorIs(t, err, ErrUnexpectedVertexKind)

	_, err = GetDataTypeByVertexID(sg, typeVertex)
	assert.ErrorIs(t, err, ErrUnexpectedVertexKind)

	missing, err := GetPropertyTypeByVertexID(sg, VertexID{BaseID: "nope", RevisionID: "1"})
	assert.NoError(t, err)
	assert.Nil(t, missing)
}
