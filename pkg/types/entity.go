package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/soundprediction/blockgraph/pkg/temporal"
)

var (
	ErrInvalidTemporalAxis = errors.New("invalid temporal axis")
	ErrInvalidLinkData     = errors.New("invalid link data")
)

// EntityID identifies an entity across all of its revisions.
type EntityID string

func (e EntityID) String() string { return string(e) }

// EntityRecordID addresses one edition of an entity.
type EntityRecordID struct {
	EntityID  EntityID `json:"entityId"`
	EditionID string   `json:"editionId"`
}

// TemporalAxis names one of the two axes of bitemporal versioning.
type TemporalAxis string

const (
	DecisionTime    TemporalAxis = "decisionTime"
	TransactionTime TemporalAxis = "transactionTime"
)

// Validate rejects unknown axes.
func (a TemporalAxis) Validate() error {
	switch a {
	case DecisionTime, TransactionTime:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTemporalAxis, string(a))
	}
}

// Other returns the opposite axis.
func (a TemporalAxis) Other() TemporalAxis {
	if a == DecisionTime {
		return TransactionTime
	}
	return DecisionTime
}

// EntityTemporalVersioningMetadata holds, per axis, the interval during which a revision is current.
type EntityTemporalVersioningMetadata struct {
	DecisionTime    temporal.Interval `json:"decisionTime"`
	TransactionTime temporal.Interval `json:"transactionTime"`
}

// Axis returns the interval recorded for axis a.
func (m EntityTemporalVersioningMetadata) Axis(a TemporalAxis) temporal.Interval {
	if a == TransactionTime {
		return m.TransactionTime
	}
	return m.DecisionTime
}

// EntityMetadata is the non-property part of an entity.
type EntityMetadata struct {
	RecordID           EntityRecordID                    `json:"recordId"`
	EntityTypeID       VersionedURL                      `json:"entityTypeId"`
	TemporalVersioning *EntityTemporalVersioningMetadata `json:"temporalVersioning,omitempty"`
	Archived           bool                              `json:"archived,omitempty"`
}

// LinkData marks an entity as a directed link from its left to its right entity.
type LinkData struct {
	LeftEntityID     EntityID `json:"leftEntityId"`
	RightEntityID    EntityID `json:"rightEntityId"`
	LeftToRightOrder *int     `json:"leftToRightOrder,omitempty"`
	RightToLeftOrder *int     `json:"rightToLeftOrder,omitempty"`
}

// Validate checks both endpoints are set.
func (l LinkData) Validate() error {
	if l.LeftEntityID == "" || l.RightEntityID == "" {
		return fmt.Errorf("%w: left and right entity ids are required", ErrInvalidLinkData)
	}
	return nil
}

// Entity is one revision of an entity. Link entities carry LinkData but are otherwise ordinary.
type Entity struct {
	Metadata   EntityMetadata  `json:"metadata"`
	Properties map[BaseURL]any `json:"properties"`
	LinkData   *LinkData       `json:"linkData,omitempty"`
}

// ID returns the entity id.
func (e *Entity) ID() EntityID { return e.Metadata.RecordID.EntityID }

// IsLink reports whether the entity carries link data.
func (e *Entity) IsLink() bool { return e.LinkData != nil }

// Interval returns the validity interval of this revision on axis a.
// The boolean is false for entities without temporal versioning.
func (e *Entity) Interval(a TemporalAxis) (temporal.Interval, bool) {
	if e.Metadata.TemporalVersioning == nil {
		return temporal.Interval{}, false
	}
	return e.Metadata.TemporalVersioning.Axis(a), true
}

// Validate checks the fields every entity must carry.
func (e *Entity) Validate() error {
	if e.Metadata.RecordID.EntityID == "" {
		return ErrEmptyID
	}
	if e.Metadata.EntityTypeID != "" {
		if err := e.Metadata.EntityTypeID.Validate(); err != nil {
			return err
		}
	}
	if tv := e.Metadata.TemporalVersioning; tv != nil {
		if err := tv.DecisionTime.Validate(); err != nil {
			return fmt.Errorf("decision time: %w", err)
		}
		if err := tv.TransactionTime.Validate(); err != nil {
			return fmt.Errorf("transaction time: %w", err)
		}
	}
	if e.LinkData != nil {
		return e.LinkData.Validate()
	}
	return nil
}

// PinnedTemporalAxis fixes one axis at a single instant.
type PinnedTemporalAxis struct {
	Axis      TemporalAxis `json:"axis"`
	Timestamp time.Time    `json:"timestamp"`
}

// VariableTemporalAxis lets the other axis range over an interval.
type VariableTemporalAxis struct {
	Axis     TemporalAxis      `json:"axis"`
	Interval temporal.Interval `json:"interval"`
}

// QueryTemporalAxes is one pinned axis and one variable axis.
type QueryTemporalAxes struct {
	Pinned   PinnedTemporalAxis   `json:"pinned"`
	Variable VariableTemporalAxis `json:"variable"`
}

// Validate checks that the pinned and variable axes are distinct and well formed.
func (q QueryTemporalAxes) Validate() error {
	if err := q.Pinned.Axis.Validate(); err != nil {
		return err
	}
	if err := q.Variable.Axis.Validate(); err != nil {
		return err
	}
	if q.Pinned.Axis == q.Variable.Axis {
		return fmt.Errorf("%w: pinned and variable axis are both %s", ErrInvalidTemporalAxis, q.Pinned.Axis)
	}
	return q.Variable.Interval.Validate()
}

// TemporalAxes records the axes a subgraph was requested with and what they resolved to.
type TemporalAxes struct {
	Initial  *QueryTemporalAxes `json:"initial,omitempty"`
	Resolved QueryTemporalAxes  `json:"resolved"`
}

// DecisionTimeAxes pins transaction time at pinnedAt and varies decision time over interval.
func DecisionTimeAxes(pinnedAt time.Time, interval temporal.Interval) *TemporalAxes {
	return &TemporalAxes{Resolved: QueryTemporalAxes{
		Pinned:   PinnedTemporalAxis{Axis: TransactionTime, Timestamp: pinnedAt.UTC()},
		Variable: VariableTemporalAxis{Axis: DecisionTime, Interval: interval},
	}}
}

// TransactionTimeAxes pins decision time at pinnedAt and varies transaction time over interval.
func TransactionTimeAxes(pinnedAt time.Time, interval temporal.Interval) *TemporalAxes {
	return &TemporalAxes{Resolved: QueryTemporalAxes{
		Pinned:   PinnedTemporalAxis{Axis: DecisionTime, Timestamp: pinnedAt.UTC()},
		Variable: VariableTemporalAxis{Axis: TransactionTime, Interval: interval},
	}}
}
