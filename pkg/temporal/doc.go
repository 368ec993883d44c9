// Package temporal implements the interval algebra used by the subgraph model.
//
// A Bound is either unbounded or limited at an instant, inclusively or exclusively.
// An Interval pairs a start and an end bound. Bounds are ordered on an extended
// timeline where an unbounded start sits at negative infinity and an unbounded end
// at positive infinity; ties on the limit are broken by openness so that an
// exclusive end at T sorts strictly before an inclusive start at T.
//
// # Empty intervals
//
// An interval whose start equals its end with at least one exclusive side is empty.
// Empty intervals match no timestamp, overlap nothing, contain nothing and are
// dropped from unions.
//
// # Usage
//
//	a := temporal.ClosedOpen(t0, t10)
//	b := temporal.ClosedOpen(t10, t20)
//	merged := temporal.UnionOfIntervals(a, b) // [t0, t20)
package temporal
