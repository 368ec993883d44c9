package types

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/blockgraph/pkg/temporal"
)

func TestBaseURLValidate(t *testing.T) {
	tests := []struct {
		name    string
		url     BaseURL
		wantErr bool
	}{
		{"valid https", "https://example.com/types/entity-type/person/", false},
		{"valid http", "http://localhost:3000/@alice/types/data-type/text/", false},
		{"empty", "", true},
		{"missing trailing slash", "https://example.com/types/person", true},
		{"relative", "/types/person/", true},
		{"ftp scheme", "ftp://example.com/types/person/", true},
		{"too long", BaseURL("https://example.com/" + strings.Repeat("a", 2048) + "/"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.url.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidBaseURL)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseVersionedURL(t *testing.T) {
	base, version, err := ParseVersionedURL("https://example.com/types/entity-type/person/v/12")
	require.NoError(t, err)
	assert.Equal(t, BaseURL("https://example.com/types/entity-type/person/"), base)
	assert.Equal(t, uint32(12), version)

	for _, bad := range []string{
		"https://example.com/types/entity-type/person/",
		"https://example.com/types/entity-type/person/v/0",
		"https://example.com/types/entity-type/person/v/abc",
		"example.com/person/v/1",
	} {
		_, _, err := ParseVersionedURL(bad)
		assert.ErrorIs(t, err, ErrInvalidVersionedURL, bad)
	}
}

func TestVersionedURLRoundTrip(t *testing.T) {
	v, err := NewVersionedURL("https://example.com/types/property-type/name/", 3)
	require.NoError(t, err)
	assert.Equal(t, VersionedURL("https://example.com/types/property-type/name/v/3"), v)
	assert.Equal(t, BaseURL("https://example.com/types/property-type/name/"), v.BaseURL())
	assert.Equal(t, uint32(3), v.Version())

	rid, err := v.RecordID()
	require.NoError(t, err)
	assert.Equal(t, v, rid.VersionedURL())

	_, err = NewVersionedURL("https://example.com/types/property-type/name/", 0)
	assert.True(t, errors.Is(err, ErrInvalidVersion))

	assert.Equal(t, uint32(0), VersionedURL("nonsense").Version())
}

func TestOntologyTypeKindValidate(t *testing.T) {
	assert.NoError(t, EntityTypeKind.Validate())
	assert.ErrorIs(t, OntologyTypeKind("linkType").Validate(), ErrUnknownTypeKind)
}

func TestPropertyValuesVariant(t *testing.T) {
	assert.Equal(t, DataTypeReferenceValues, PropertyValues{Ref: "https://example.com/dt/text/v/1"}.Variant())
	assert.Equal(t, PropertyObjectValues, PropertyValues{Type: "object"}.Variant())
	assert.Equal(t, ArrayValues, PropertyValues{Type: "array", Items: &OneOf{}}.Variant())
	assert.Equal(t, InvalidPropertyValues, PropertyValues{Type: "array"}.Variant())
}

func TestDataTypeSchemaKeepsConstraints(t *testing.T) {
	raw := `{"kind":"dataType","$id":"https://example.com/dt/age/v/1","title":"Age","type":"number","minimum":0}`

	var schema DataTypeSchema
	require.NoError(t, json.Unmarshal([]byte(raw), &schema))
	assert.Equal(t, "Age", schema.Title)
	assert.Equal(t, map[string]any{"minimum": float64(0)}, schema.Constraints)

	out, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestNewEntityTypeDerivesRecordID(t *testing.T) {
	et, err := NewEntityType(EntityTypeSchema{ID: "https://example.com/et/person/v/2", Title: "Person"})
	require.NoError(t, err)
	assert.Equal(t, EntityTypeKind, et.TypeKind())
	assert.Equal(t, "object", et.Schema.Type)
	assert.Equal(t, OntologyTypeRecordID{BaseURL: "https://example.com/et/person/", Version: 2}, et.Metadata.RecordID)

	_, err = NewEntityType(EntityTypeSchema{ID: "not-a-url"})
	assert.Error(t, err)
}

func TestEntityValidate(t *testing.T) {
	e := &Entity{Metadata: EntityMetadata{RecordID: EntityRecordID{EntityID: "web~1"}}}
	assert.NoError(t, e.Validate())
	assert.False(t, e.IsLink())

	e.LinkData = &LinkData{LeftEntityID: "web~2"}
	assert.ErrorIs(t, e.Validate(), ErrInvalidLinkData)
	assert.True(t, e.IsLink())

	assert.ErrorIs(t, (&Entity{}).Validate(), ErrEmptyID)
}

func TestEntityIntervalByAxis(t *testing.T) {
	dt := temporal.ClosedOpen(time.Unix(0, 0), time.Unix(10, 0))
	tt := temporal.From(time.Unix(5, 0))
	e := &Entity{Metadata: EntityMetadata{
		RecordID:           EntityRecordID{EntityID: "web~1"},
		TemporalVersioning: &EntityTemporalVersioningMetadata{DecisionTime: dt, TransactionTime: tt},
	}}

	got, ok := e.Interval(DecisionTime)
	require.True(t, ok)
	assert.True(t, got.Equal(dt))
	got, _ = e.Interval(TransactionTime)
	assert.True(t, got.Equal(tt))

	_, ok = (&Entity{}).Interval(DecisionTime)
	assert.False(t, ok)
}

func TestQueryTemporalAxesValidate(t *testing.T) {
	axes := DecisionTimeAxes(time.Unix(100, 0), temporal.Always())
	assert.NoError(t, axes.Resolved.Validate())
	assert.Equal(t, TransactionTime, axes.Resolved.Pinned.Axis)

	axes.Resolved.Pinned.Axis = DecisionTime
	assert.ErrorIs(t, axes.Resolved.Validate(), ErrInvalidTemporalAxis)

	assert.Equal(t, DecisionTime, TransactionTimeAxes(time.Now(), temporal.Always()).Resolved.Pinned.Axis)
}
