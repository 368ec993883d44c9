package codegen

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soundprediction/blockgraph/pkg/ontology"
	"github.com/soundprediction/blockgraph/pkg/types"
)

const (
	textURL    types.VersionedURL = "https://example.com/types/data-type/text/v/1"
	nameURL    types.VersionedURL = "https://example.com/types/property-type/name/v/1"
	addressURL types.VersionedURL = "https://example.com/types/property-type/address/v/1"
	agentURL   types.VersionedURL = "https://example.com/types/entity-type/agent/v/1"
	personURL  types.VersionedURL = "https://example.com/types/entity-type/person/v/1"
	friendURL  types.VersionedURL = "https://example.com/types/entity-type/friend-of/v/1"
)

// schemas is a small ontology: person inherits agent, has name and address
// properties, and links to other persons through friend-of.
var schemas = map[types.VersionedURL]string{
	textURL: `{
		"kind": "dataType",
		"$id": "https://example.com/types/data-type/text/v/1",
		"title": "Text",
		"type": "string"
	}`,
	nameURL: `{
		"kind": "propertyType",
		"$id": "https://example.com/types/property-type/name/v/1",
		"title": "Name",
		"oneOf": [{"$ref": "https://example.com/types/data-type/text/v/1"}]
	}`,
	addressURL: `{
		"kind": "propertyType",
		"$id": "https://example.com/types/property-type/address/v/1",
		"title": "Address",
		"oneOf": [
			{
				"type": "object",
				"properties": {
					"https://example.com/types/property-type/name/": {"$ref": "https://example.com/types/property-type/name/v/1"}
				}
			},
			{
				"type": "array",
				"items": {"oneOf": [{"$ref": "https://example.com/types/data-type/text/v/1"}]}
			}
		]
	}`,
	agentURL: `{
		"kind": "entityType",
		"$id": "https://example.com/types/entity-type/agent/v/1",
		"title": "Agent",
		"type": "object",
		"properties": {}
	}`,
	friendURL: `{
		"kind": "entityType",
		"$id": "https://example.com/types/entity-type/friend-of/v/1",
		"title": "Friend Of",
		"type": "object",
		"properties": {}
	}`,
	personURL: `{
		"kind": "entityType",
		"$id": "https://example.com/types/entity-type/person/v/1",
		"title": "Person",
		"type": "object",
		"allOf": [{"$ref": "https://example.com/types/entity-type/agent/v/1"}],
		"properties": {
			"https://example.com/types/property-type/name/": {"$ref": "https://example.com/types/property-type/name/v/1"},
			"https://example.com/types/property-type/address/": {
				"type": "array",
				"items": {"$ref": "https://example.com/types/property-type/address/v/1"}
			}
		},
		"links": {
			"https://example.com/types/entity-type/friend-of/v/1": {
				"type": "array",
				"items": {"oneOf": [{"$ref": "https://example.com/types/entity-type/person/v/1"}]}
			}
		},
		"labelProperty": "https://example.com/types/property-type/name/"
	}`,
}

// fakeFetcher serves schemas from a map and records every call.
type fakeFetcher struct {
	mu      sync.Mutex
	schemas map[types.VersionedURL]string
	fail    map[types.VersionedURL]error
	calls   map[types.VersionedURL]int
	hook    func(ctx context.Context, id types.VersionedURL)
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		schemas: schemas,
		fail:    make(map[types.VersionedURL]error),
		calls:   make(map[types.VersionedURL]int),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, id types.VersionedURL) ([]byte, error) {
	f.mu.Lock()
	f.calls[id]++
	err := f.fail[id]
	raw, ok := f.schemas[id]
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s: not found", ErrFetchFailed, id)
	}
	return []byte(raw), nil
}

func (f *fakeFetcher) callCount(id types.VersionedURL) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func newValidator(t *testing.T) *ontology.Validator {
	t.Helper()
	v, err := ontology.NewValidator(nil)
	require.NoError(t, err)
	return v
}
