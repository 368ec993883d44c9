// Package subgraph implements the versioned, time-indexed graph of entities and
// ontology types that queries return, and the standard library of reads,
// traversals and mutations over it.
//
// # Layout
//
// Vertices are keyed by base id (an entity id or an ontology base URL) and then
// by revision key. Edges are keyed by source id and then by the as-of key from
// which a list of outward edges is in effect. Both directions of every relation
// are stored, so traversals never search the whole graph.
//
// # Reads
//
// Accessors return nil or an empty slice when nothing matches. They return an
// error only when the subgraph is malformed: a root without a vertex, a vertex
// of an unexpected kind, or a link whose endpoint entity is missing.
//
//	sg := subgraph.New(types.DecisionTimeAxes(now, temporal.Always()))
//	if err := subgraph.AddEntitiesToSubgraphByMutation(sg, entities); err != nil {
//	    return err
//	}
//	pairs, err := subgraph.GetOutgoingLinkAndTargetEntities(sg, "web~alice", nil)
//
// # Ownership
//
// A Subgraph owns its maps and has no internal locking. Mutation helpers apply
// a batch completely or not at all; callers sharing a Subgraph between
// goroutines must serialize access themselves.
package subgraph
