package temporal

import (
	"fmt"
	"slices"
	"time"
)

// Interval is a span on a single temporal axis.
type Interval struct {
	Start Bound `json:"start"`
	End   Bound `json:"end"`
}

// NewInterval builds an interval and validates bound ordering.
func NewInterval(start, end Bound) (Interval, error) {
	i := Interval{Start: start, End: end}
	if err := i.Validate(); err != nil {
		return Interval{}, err
	}
	return i, nil
}

// ClosedOpen returns [start, end).
func ClosedOpen(start, end time.Time) Interval {
	return Interval{Start: InclusiveBound(start), End: ExclusiveBound(end)}
}

// Closed returns [start, end].
func Closed(start, end time.Time) Interval {
	return Interval{Start: InclusiveBound(start), End: InclusiveBound(end)}
}

// From returns [start, ∞).
func From(start time.Time) Interval {
	return Interval{Start: InclusiveBound(start), End: UnboundedBound()}
}

// Instant returns [t, t].
func Instant(t time.Time) Interval {
	return Closed(t, t)
}

// Always returns (-∞, ∞).
func Always() Interval {
	return Interval{Start: UnboundedBound(), End: UnboundedBound()}
}

// Validate checks that a limited start is not after a limited end.
func (i Interval) Validate() error {
	for _, b := range []Bound{i.Start, i.End} {
		switch b.Kind {
		case Unbounded, Inclusive, Exclusive:
		default:
			return fmt.Errorf("%w: unknown kind %q", ErrInvalidBound, b.Kind)
		}
	}
	if !i.Start.IsUnbounded() && !i.End.IsUnbounded() && i.Start.Limit.After(i.End.Limit) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidInterval, i.Start, i.End)
	}
	return nil
}

// IsEmpty reports whether the interval contains no instant at all.
func (i Interval) IsEmpty() bool {
	return comparePoints(toPoint(i.Start, StartBound), toPoint(i.End, EndBound)) > 0
}

// Equal reports whether both bounds are equal.
func (i Interval) Equal(other Interval) bool {
	return i.Start.Equal(other.Start) && i.End.Equal(other.End)
}

func (i Interval) String() string {
	return "[" + i.Start.String() + ", " + i.End.String() + "]"
}

// ContainsTimestamp reports whether t lies within the interval.
func (i Interval) ContainsTimestamp(t time.Time) bool {
	if i.IsEmpty() {
		return false
	}
	p := point{limit: t}
	return comparePoints(toPoint(i.Start, StartBound), p) <= 0 &&
		comparePoints(p, toPoint(i.End, EndBound)) <= 0
}

// OverlapsInterval reports whether the two intervals share at least one instant.
func (i Interval) OverlapsInterval(other Interval) bool {
	if i.IsEmpty() || other.IsEmpty() {
		return false
	}
	return comparePoints(toPoint(i.Start, StartBound), toPoint(other.End, EndBound)) <= 0 &&
		comparePoints(toPoint(other.Start, StartBound), toPoint(i.End, EndBound)) <= 0
}

// ContainsInterval reports whether every instant of inner lies in i.
// Empty intervals on either side never satisfy containment.
func (i Interval) ContainsInterval(inner Interval) bool {
	if i.IsEmpty() || inner.IsEmpty() {
		return false
	}
	return comparePoints(toPoint(i.Start, StartBound), toPoint(inner.Start, StartBound)) <= 0 &&
		comparePoints(toPoint(inner.End, EndBound), toPoint(i.End, EndBound)) <= 0
}

// IsStrictlyBeforeInterval reports whether every instant of i precedes every instant of other.
func (i Interval) IsStrictlyBeforeInterval(other Interval) bool {
	if i.IsEmpty() || other.IsEmpty() {
		return false
	}
	return comparePoints(toPoint(i.End, EndBound), toPoint(other.Start, StartBound)) < 0
}

// IsStrictlyAfterInterval reports whether every instant of i follows every instant of other.
func (i Interval) IsStrictlyAfterInterval(other Interval) bool {
	return other.IsStrictlyBeforeInterval(i)
}

// IsAdjacentToInterval reports whether the intervals do not overlap but together cover a
// contiguous span, i.e. one ends at T and the other starts at T with complementary openness.
func (i Interval) IsAdjacentToInterval(other Interval) bool {
	if i.IsEmpty() || other.IsEmpty() || i.OverlapsInterval(other) {
		return false
	}
	return touches(i.End, other.Start) || touches(other.End, i.Start)
}

func touches(end, start Bound) bool {
	if end.IsUnbounded() || start.IsUnbounded() || !end.Limit.Equal(start.Limit) {
		return false
	}
	return toPoint(start, StartBound).offset-toPoint(end, EndBound).offset == 1
}

// MergeWithInterval returns the single interval spanning both inputs.
// It fails with ErrIntervalsNotMergeable unless the intervals overlap or are adjacent.
func (i Interval) MergeWithInterval(other Interval) (Interval, error) {
	if !i.OverlapsInterval(other) && !i.IsAdjacentToInterval(other) {
		return Interval{}, fmt.Errorf("%w: %s and %s", ErrIntervalsNotMergeable, i, other)
	}
	return Interval{
		Start: minStart(i.Start, other.Start),
		End:   maxEnd(i.End, other.End),
	}, nil
}

// IntersectionWithInterval returns the overlapping sub-interval.
// The boolean is false, and the interval is empty, when the inputs share no instant.
func (i Interval) IntersectionWithInterval(other Interval) (Interval, bool) {
	out := Interval{
		Start: maxStart(i.Start, other.Start),
		End:   minEnd(i.End, other.End),
	}
	if i.IsEmpty() || other.IsEmpty() || out.IsEmpty() {
		return emptyInterval(), false
	}
	return out, true
}

// UnionWithInterval returns the union of two intervals as one interval when they can be
// merged, or both intervals in start order otherwise. Empty inputs are dropped.
func (i Interval) UnionWithInterval(other Interval) []Interval {
	return UnionOfIntervals(i, other)
}

// UnionOfIntervals returns the minimal sorted set of disjoint, non-adjacent intervals that
// covers exactly the instants covered by the inputs.
func UnionOfIntervals(intervals ...Interval) []Interval {
	sorted := make([]Interval, 0, len(intervals))
	for _, interval := range intervals {
		if !interval.IsEmpty() {
			sorted = append(sorted, interval)
		}
	}
	SortIntervals(sorted)

	out := make([]Interval, 0, len(sorted))
	for _, interval := range sorted {
		if n := len(out); n > 0 {
			last := out[n-1]
			if merged, err := last.MergeWithInterval(interval); err == nil {
				out[n-1] = merged
				continue
			}
		}
		out = append(out, interval)
	}
	return out
}

// SortIntervals sorts in place by start bound, then by end bound.
func SortIntervals(intervals []Interval) {
	slices.SortStableFunc(intervals, compareIntervals)
}

func compareIntervals(a, b Interval) int {
	if c := CompareBounds(a.Start, StartBound, b.Start, StartBound); c != 0 {
		return c
	}
	return CompareBounds(a.End, EndBound, b.End, EndBound)
}

func minStart(a, b Bound) Bound {
	if CompareBounds(a, StartBound, b, StartBound) <= 0 {
		return a
	}
	return b
}

func maxStart(a, b Bound) Bound {
	if CompareBounds(a, StartBound, b, StartBound) >= 0 {
		return a
	}
	return b
}

func minEnd(a, b Bound) Bound {
	if CompareBounds(a, EndBound, b, EndBound) <= 0 {
		return a
	}
	return b
}

func maxEnd(a, b Bound) Bound {
	if CompareBounds(a, EndBound, b, EndBound) >= 0 {
		return a
	}
	return b
}

func emptyInterval() Interval {
	var epoch time.Time
	return Interval{Start: InclusiveBound(epoch), End: ExclusiveBound(epoch)}
}
