package subgraph

import (
	"time"

	"github.com/soundprediction/blockgraph/pkg/temporal"
	"github.com/soundprediction/blockgraph/pkg/types"
)

func ts(sec int) time.Time {
	return time.Unix(int64(sec), 0).UTC()
}

func newEntity(id string) *types.Entity {
	return &types.Entity{
		Metadata: types.EntityMetadata{
			RecordID: types.EntityRecordID{EntityID: types.EntityID(id)},
		},
		Properties: map[types.BaseURL]any{},
	}
}

func newLinkEntity(id, left, right string) *types.Entity {
	e := newEntity(id)
	e.LinkData = &types.LinkData{LeftEntityID: types.EntityID(left), RightEntityID: types.EntityID(right)}
	return e
}

func withEdition(e *types.Entity, edition string) *types.Entity {
	e.Metadata.RecordID.EditionID = edition
	return e
}

// withDecisionTime sets the decision time interval and an open transaction time.
func withDecisionTime(e *types.Entity, interval temporal.Interval) *types.Entity {
	e.Metadata.TemporalVersioning = &types.EntityTemporalVersioningMetadata{
		DecisionTime:    interval,
		TransactionTime: temporal.From(ts(0)),
	}
	return e
}

func newTemporalSubgraph() *Subgraph {
	return New(types.DecisionTimeAxes(ts(1000), temporal.Always()))
}

func entityIDs(entities []*types.Entity) []types.EntityID {
	out := make([]types.EntityID, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.ID())
	}
	return out
}
