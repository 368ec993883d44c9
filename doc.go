// Package blockgraph provides a temporal knowledge graph subgraph library for Go.
//
// A subgraph is a slice of a knowledge graph returned by a graph query: entities
// and the ontology types that describe them, keyed by id and revision, plus the
// edges between them. Entities may carry decision time and transaction time
// intervals, in which case every lookup is answered for a point or window in time.
//
// The packages under pkg/ do the work:
//
//   - pkg/temporal: bounds and intervals, with union, intersection and ordering
//   - pkg/types: identifiers, ontology type schemas and entities
//   - pkg/subgraph: the subgraph container, accessors, roots, mutation and links
//   - pkg/ontology: schema validation and dependency extraction
//   - pkg/codegen: concurrent ontology dependency traversal and manifests
//   - pkg/graphsink: export of a subgraph into Neo4j
//
// This package ties them together behind a Client configured from pkg/config.
//
// # Reading a Subgraph
//
//	sg, err := blockgraph.LoadSubgraphFile("subgraph.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	report, err := blockgraph.Inspect(sg, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, e := range report.Entities {
//		fmt.Printf("%s (%s): %d links\n", e.Label, e.ID, len(e.Links))
//	}
//
// # Resolving Ontology Dependencies
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	client, err := blockgraph.NewClient(cfg, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close(ctx)
//
//	manifest, _, err := client.ResolveDependencies(ctx, []types.VersionedURL{
//		"https://blockprotocol.org/@blockprotocol/types/entity-type/thing/v/1",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	manifest.WriteYAML(os.Stdout)
//
// # Exporting
//
// With neo4j.uri configured, ExportSubgraph writes ontology types, entities and
// their relationships to Neo4j in batched transactions:
//
//	stats, err := client.ExportSubgraph(ctx, sg)
package blockgraph
