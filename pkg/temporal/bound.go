package temporal

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidBound is returned when a bound cannot be decoded or has an unknown kind.
	ErrInvalidBound = errors.New("invalid temporal bound")
	// ErrInvalidInterval is returned when an interval's limited start is after its limited end.
	ErrInvalidInterval = errors.New("invalid interval: start is after end")
	// ErrIntervalsNotMergeable is returned when merging intervals that neither overlap nor touch.
	ErrIntervalsNotMergeable = errors.New("intervals are neither overlapping nor adjacent")
)

// BoundKind describes how a bound relates to its limit.
type BoundKind string

const (
	Unbounded BoundKind = "unbounded"
	Inclusive BoundKind = "inclusive"
	Exclusive BoundKind = "exclusive"
)

// BoundPosition says whether a bound is used as the start or the end of an interval.
type BoundPosition int

const (
	StartBound BoundPosition = iota
	EndBound
)

// Bound is one side of an interval.
type Bound struct {
	Kind  BoundKind
	Limit time.Time
}

// UnboundedBound returns a bound without a limit.
func UnboundedBound() Bound { return Bound{Kind: Unbounded} }

// InclusiveBound returns a bound that includes t.
func InclusiveBound(t time.Time) Bound { return Bound{Kind: Inclusive, Limit: t.UTC()} }

// ExclusiveBound returns a bound that excludes t.
func ExclusiveBound(t time.Time) Bound { return Bound{Kind: Exclusive, Limit: t.UTC()} }

// IsUnbounded reports whether the bound has no limit.
func (b Bound) IsUnbounded() bool { return b.Kind == Unbounded }

// Equal reports whether two bounds have the same kind and limit.
func (b Bound) Equal(other Bound) bool {
	if b.Kind != other.Kind {
		return false
	}
	if b.Kind == Unbounded {
		return true
	}
	return b.Limit.Equal(other.Limit)
}

func (b Bound) String() string {
	switch b.Kind {
	case Unbounded:
		return "unbounded"
	case Inclusive:
		return "incl(" + b.Limit.UTC().Format(time.RFC3339Nano) + ")"
	case Exclusive:
		return "excl(" + b.Limit.UTC().Format(time.RFC3339Nano) + ")"
	default:
		return fmt.Sprintf("bound(%q)", string(b.Kind))
	}
}

// point is a bound projected onto the extended timeline.
// rank is -1 for negative infinity, +1 for positive infinity and 0 for a limited point.
// offset breaks ties between bounds sharing a limit:
// exclusive end = -1, inclusive start/end = 0, exclusive start = +1.
type point struct {
	rank   int
	limit  time.Time
	offset int
}

func toPoint(b Bound, pos BoundPosition) point {
	switch b.Kind {
	case Inclusive:
		return point{limit: b.Limit}
	case Exclusive:
		if pos == StartBound {
			return point{limit: b.Limit, offset: 1}
		}
		return point{limit: b.Limit, offset: -1}
	default:
		if pos == StartBound {
			return point{rank: -1}
		}
		return point{rank: 1}
	}
}

func comparePoints(a, b point) int {
	if a.rank != b.rank {
		if a.rank < b.rank {
			return -1
		}
		return 1
	}
	if a.rank != 0 {
		return 0
	}
	if c := a.limit.Compare(b.limit); c != 0 {
		return c
	}
	switch {
	case a.offset < b.offset:
		return -1
	case a.offset > b.offset:
		return 1
	default:
		return 0
	}
}

// CompareBounds orders two bounds on the extended timeline and returns -1, 0 or 1.
// The positions matter: an unbounded start is before everything, an unbounded end is
// after everything, and an exclusive end at T is before an inclusive start at T.
func CompareBounds(lhs Bound, lhsPos BoundPosition, rhs Bound, rhsPos BoundPosition) int {
	return comparePoints(toPoint(lhs, lhsPos), toPoint(rhs, rhsPos))
}

type boundJSON struct {
	Kind  BoundKind  `json:"kind"`
	Limit *time.Time `json:"limit,omitempty"`
}

// MarshalJSON encodes the bound as {"kind": ..., "limit": ...}.
func (b Bound) MarshalJSON() ([]byte, error) {
	out := boundJSON{Kind: b.Kind}
	if b.Kind != Unbounded {
		limit := b.Limit.UTC()
		out.Limit = &limit
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a bound and rejects unknown kinds or missing limits.
func (b *Bound) UnmarshalJSON(data []byte) error {
	var in boundJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBound, err)
	}
	switch in.Kind {
	case Unbounded:
		*b = UnboundedBound()
	case Inclusive, Exclusive:
		if in.Limit == nil {
			return fmt.Errorf("%w: %s bound without limit", ErrInvalidBound, in.Kind)
		}
		*b = Bound{Kind: in.Kind, Limit: in.Limit.UTC()}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidBound, in.Kind)
	}
	return nil
}
