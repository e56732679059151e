// Package represent is the root of the representative domain selection module.
//
// Protein analysis pipelines report many overlapping domain hits per sequence.
// This module picks, per protein, the subset of hits from the eligible member
// databases that covers the most residues without two hits overlapping beyond a
// threshold, and flags those hits representative in the match document.
//
// # Layout
//
//	match/                  match document model, JSON codec and schema check
//	represent/              selection engine: candidates, clusters, cliques
//	config/                 layered configuration (defaults, file, REPRESENT_* env)
//	errors/                 classified errors (transient, invalid, fatal)
//	metric/                 Prometheus registry and /metrics + /health server
//	health/                 component health aggregation served at /health
//	natsclient/             NATS connection with circuit breaker
//	processor/annotator/    NATS request and stream annotator
//	pkg/worker/             generic bounded worker pool
//	pkg/retry/              exponential backoff with jitter
//	pkg/tlsutil/            client TLS configuration for NATS
//	pkg/cache/              LRU cache backing the annotator replay window
//	cmd/represent/          batch CLI: document in, annotated document out
//	cmd/represent-service/  long-running NATS service
//
// # Batch use
//
//	represent -o annotated.json matches.json
//	cat matches.json | represent -strategy=maximal -
//
// # Service use
//
// represent-service subscribes to an input subject in a queue group, annotates
// each match document it receives and publishes the result to an output subject.
// Requests carrying a reply subject also get the annotated document back.
//
//	represent-service -nats nats://localhost:4222 -config represent.yaml
//
// # Library use
//
//	engine, err := represent.NewEngine(represent.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	set, err := match.Decode(r)
//	if err != nil {
//	    return err
//	}
//	summary, err := engine.AnnotateAll(ctx, set)
//
// Errors returned across the module carry a class; use errors.IsTransient to
// decide whether an operation is worth retrying.
package represent
