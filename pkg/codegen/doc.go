// Package codegen resolves the full dependency closure of a set of ontology types,
// the first step of generating code for them.
//
// Schemas are loaded through a TypeFetcher. HTTPFetcher retries with exponential
// backoff; CircuitBreakerFetcher and CachingFetcher wrap any fetcher:
//
//	f := codegen.NewFetcherFromConfig(cfg, schemaCache, logger)
//	t := codegen.NewTraverser(f, validator, codegen.WithMaxConcurrency(cfg.Codegen.MaxConcurrency))
//	res, err := t.Traverse(ctx, ids)
//	if err != nil {
//	    // res still holds every type resolved before the failure
//	}
//	deps := res.Dependencies.GetDependenciesForType(ids[0])
//
// NewManifest turns a Result into a YAML document.
package codegen
