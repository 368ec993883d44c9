package subgraph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/blockgraph/pkg/temporal"
	"github.com/soundprediction/blockgraph/pkg/types"
)

const wireSubgraph = `{
  "roots": [{"baseId": "web~a1b2c3", "revisionId": "0"}],
  "vertices": {
    "web~a1b2c3": {
      "0": {
        "kind": "entity",
        "inner": {
          "metadata": {
            "recordId": {"entityId": "web~a1b2c3", "editionId": ""},
            "entityTypeId": "https://example.com/et/person/v/1"
          },
          "properties": {"https://example.com/pt/name/": "Alice"}
        }
      }
    },
    "https://example.com/et/person/": {
      "1": {
        "kind": "entityType",
        "inner": {
          "schema": {
            "kind": "entityType",
            "$id": "https://example.com/et/person/v/1",
            "title": "Person",
            "type": "object",
            "properties": {}
          },
          "metadata": {"recordId": {"baseUrl": "https://example.com/et/person/", "version": 1}}
        }
      }
    }
  },
  "edges": {
    "web~a1b2c3": {
      "0": [
        {"kind": "IS_OF_TYPE", "reversed": false, "rightEndpoint": {"baseId": "https://example.com/et/person/", "revisionId": "1"}}
      ]
    }
  },
  "depths": {"isOfType": {"incoming": 0, "outgoing": 1}}
}`

func TestDecodeWireSubgraph(t *testing.T) {
	var sg Subgraph
	require.NoError(t, json.Unmarshal([]byte(wireSubgraph), &sg))
	require.NoError(t, sg.Validate())

	assert.False(t, sg.IsTemporal())
	assert.Equal(t, uint8(1), sg.Depths.IsOfType.Outgoing)

	rooted, err := NewEntityRootedSubgraph(&sg)
	require.NoError(t, err)
	require.Len(t, rooted.RootElements(), 1)
	alice := rooted.RootElements()[0]
	assert.Equal(t, "Alice", EntityLabel(&sg, alice))

	et := GetEntityTypeByID(&sg, "https://example.com/et/person/v/1")
	require.NotNil(t, et)
	assert.Equal(t, "Person", et.Title())

	edges := EdgesAt(&sg, "web~a1b2c3", "0")
	require.Len(t, edges, 1)
	assert.Equal(t, OntologyEndpoint{BaseID: "https://example.com/et/person/", RevisionID: "1"}, edges[0].RightEndpoint)
}

func TestSubgraphJSONRoundTrip(t *testing.T) {
	sg := newTemporalSubgraph()
	always := temporal.From(ts(0))
	require.NoError(t, AddEntitiesToSubgraphByMutation(sg, []*types.Entity{
		withDecisionTime(newEntity("a"), always),
		withDecisionTime(newEntity("b"), always),
		withDecisionTime(newLinkEntity("l", "a", "b"), temporal.ClosedOpen(ts(0), ts(10))),
	}))
	AddRoots(sg, VertexID{BaseID: "a", RevisionID: RevisionKeyFromTime(ts(0))})

	first, err := json.Marshal(sg)
	require.NoError(t, err)

	var decoded Subgraph
	require.NoError(t, json.Unmarshal(first, &decoded))
	require.NoError(t, decoded.Validate())

	second, err := json.Marshal(&decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))

	pairs, err := GetOutgoingLinkAndTargetEntities(&decoded, "a", nil)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, types.EntityID("b"), pairs[0].RightEntity[0].ID())
}

func TestDecodeRejectsMalformedElements(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		err  error
	}{
		{
			name: "unknown vertex kind",
			doc:  `{"roots": [], "vertices": {"a": {"0": {"kind": "widget", "inner": {}}}}, "edges": {}}`,
			err:  ErrInvalidVertex,
		},
		{
			name: "endpoint without ids",
			doc:  `{"roots": [], "vertices": {}, "edges": {"a": {"0": [{"kind": "HAS_LEFT_ENTITY", "reversed": false, "rightEndpoint": {}}]}}}`,
			err:  ErrInvalidEdge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sg Subgraph
			assert.ErrorIs(t, json.Unmarshal([]byte(tt.doc), &sg), tt.err)
		})
	}

	var sg Subgraph
	doc := `{"roots": [], "vertices": {}, "edges": {"a": {"0": [{"kind": "INHERITS_FROM", "reversed": false, "rightEndpoint": {"entityId": "b"}}]}}}`
	require.NoError(t, json.Unmarshal([]byte(doc), &sg))
	assert.ErrorIs(t, sg.Validate(), ErrInvalidEdge)
}
