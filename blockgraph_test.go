package blockgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/blockgraph/pkg/codegen"
	"github.com/soundprediction/blockgraph/pkg/config"
	"github.com/soundprediction/blockgraph/pkg/graphsink"
	"github.com/soundprediction/blockgraph/pkg/subgraph"
	"github.com/soundprediction/blockgraph/pkg/types"
)

const (
	textURL   types.VersionedURL = "https://example.com/types/data-type/text/v/1"
	nameURL   types.VersionedURL = "https://example.com/types/property-type/name/v/1"
	personURL types.VersionedURL = "https://example.com/types/entity-type/person/v/1"
	nameBase  types.BaseURL      = "https://example.com/types/property-type/name/"
)

var schemas = map[types.VersionedURL]string{
	textURL: `{"kind": "dataType", "$id": "https://example.com/types/data-type/text/v/1", "title": "Text", "type": "string"}`,
	nameURL: `{
		"kind": "propertyType",
		"$id": "https://example.com/types/property-type/name/v/1",
		"title": "Name",
		"oneOf": [{"$ref": "https://example.com/types/data-type/text/v/1"}]
	}`,
}

func testConfig() *config.Config {
	return &config.Config{
		Log:     config.LogConfig{Level: "info", Format: "text"},
		Codegen: config.CodegenConfig{MaxConcurrency: 2, FetchTimeout: 5},
		Cache:   config.CacheConfig{Driver: "none"},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func entity(id, name string) *types.Entity {
	props := map[types.BaseURL]any{}
	if name != "" {
		props[nameBase] = name
	}
	return &types.Entity{
		Metadata: types.EntityMetadata{
			RecordID:     types.EntityRecordID{EntityID: types.EntityID(id)},
			EntityTypeID: personURL,
		},
		Properties: props,
	}
}

func peopleSubgraph(t *testing.T) *subgraph.Subgraph {
	t.Helper()
	person, err := types.NewEntityType(types.EntityTypeSchema{ID: personURL, Title: "Person", LabelProperty: nameBase})
	require.NoError(t, err)
	link := entity("l", "")
	link.LinkData = &types.LinkData{LeftEntityID: "a", RightEntityID: "b"}

	sg := subgraph.New(nil)
	require.NoError(t, subgraph.AddOntologyTypesToSubgraphByMutation(sg, person))
	require.NoError(t, subgraph.AddEntitiesToSubgraphByMutation(sg, []*types.Entity{
		entity("a", "Alice"), entity("b", "Bob"), link,
	}))
	subgraph.AddRoots(sg, subgraph.VertexID{BaseID: "a", RevisionID: "0"})
	return sg
}

func TestLoadSubgraph(t *testing.T) {
	data, err := json.Marshal(peopleSubgraph(t))
	require.NoError(t, err)

	sg, err := LoadSubgraph(bytes.NewReader(data))
	require.NoError(t, err)
	assert.NotNil(t, subgraph.GetEntity(sg, "a"))

	_, err = LoadSubgraph(strings.NewReader("{"))
	assert.ErrorIs(t, err, ErrInvalidSubgraph)

	_, err = LoadSubgraph(strings.NewReader(`{"roots":[{"baseId":"x","revisionId":"0"}],"vertices":{},"edges":{}}`))
	assert.ErrorIs(t, err, ErrInvalidSubgraph)
	assert.ErrorIs(t, err, subgraph.ErrRootNotFound)

	_, err = LoadSubgraphFile("testdata/does-not-exist.json")
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	report, err := Inspect(peopleSubgraph(t), nil)
	require.NoError(t, err)

	assert.False(t, report.Temporal)
	assert.Equal(t, 1, report.EntityTypes)
	require.Len(t, report.Roots, 1)
	assert.Equal(t, RootSummary{ID: "a@0", Kind: subgraph.EntityVertexKind, Label: "Alice"}, report.Roots[0])

	require.Len(t, report.Entities, 2, "link entities are reported as links")
	alice := report.Entities[0]
	assert.Equal(t, types.EntityID("a"), alice.ID)
	assert.Equal(t, 1, alice.Revisions)
	assert.Equal(t, []LinkSummary{{LinkID: "l", Target: "b", Label: "Bob"}}, alice.Links)
	assert.Empty(t, report.Entities[1].Links)
}

func TestClientResolveDependencies(t *testing.T) {
	fetcher := codegen.FetcherFunc(func(_ context.Context, id types.VersionedURL) ([]byte, error) {
		raw, ok := schemas[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", codegen.ErrFetchFailed, id)
		}
		return []byte(raw), nil
	})
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	client, err := NewClient(testConfig(), &Options{Logger: testLogger(), Fetcher: fetcher, Now: func() time.Time { return now }})
	require.NoError(t, err)
	defer client.Close(context.Background())

	manifest, res, err := client.ResolveDependencies(context.Background(), []types.VersionedURL{nameURL})
	require.NoError(t, err)
	assert.Len(t, res.Types, 2)
	assert.Equal(t, now, manifest.GeneratedAt)
	require.NotNil(t, manifest.Type(nameURL))
	assert.Equal(t, []types.VersionedURL{textURL}, manifest.Type(nameURL).Transitive)

	_, _, err = client.ResolveDependencies(context.Background(), []types.VersionedURL{"https://example.com/types/data-type/missing/v/1"})
	assert.ErrorIs(t, err, codegen.ErrFetchFailed)

	_, _, err = client.ResolveDependencies(context.Background(), nil)
	assert.ErrorIs(t, err, codegen.ErrNoTypeIDs)
}

func TestClientValidateSchema(t *testing.T) {
	client, err := NewClient(testConfig(), &Options{Logger: testLogger()})
	require.NoError(t, err)

	typ, err := client.ValidateSchema([]byte(schemas[textURL]))
	require.NoError(t, err)
	assert.Equal(t, textURL, typ.TypeID())
	assert.Nil(t, client.Sink())
	assert.NoError(t, client.Close(context.Background()))
}

type recordingSink struct {
	exported int
	closed   bool
}

func (s *recordingSink) Export(_ context.Context, sg *subgraph.Subgraph) (*graphsink.ExportStats, error) {
	s.exported++
	return &graphsink.ExportStats{Nodes: len(subgraph.GetEntities(sg, true))}, nil
}

func (s *recordingSink) Close(context.Context) error {
	s.closed = true
	return nil
}

func TestClientExportSubgraph(t *testing.T) {
	client, err := NewClient(testConfig(), &Options{Logger: testLogger()})
	require.NoError(t, err)
	_, err = client.ExportSubgraph(context.Background(), peopleSubgraph(t))
	assert.ErrorIs(t, err, ErrSinkNotConfigured)

	sink := &recordingSink{}
	client, err = NewClient(testConfig(), &Options{Logger: testLogger(), Sink: sink})
	require.NoError(t, err)
	stats, err := client.ExportSubgraph(context.Background(), peopleSubgraph(t))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Nodes)
	require.NoError(t, client.Close(context.Background()))
	assert.True(t, sink.closed)
}

func TestNewClientRequiresConfig(t *testing.T) {
	_, err := NewClient(nil, nil)
	assert.Error(t, err)

	cfg := testConfig()
	cfg.Cache.Driver = "redis"
	_, err = NewClient(cfg, &Options{Logger: testLogger()})
	assert.True(t, err != nil && !errors.Is(err, ErrSinkNotConfigured))
}
