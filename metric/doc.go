// Package metric provides Prometheus-based metrics collection and an HTTP server
// for monitoring representative domain selection.
//
// The package offers a registry holding the core selection metrics (proteins,
// candidates by outcome, clusters, cliques scored, representatives) together with
// transport metrics, plus extensible registration for component-specific metrics
// such as the worker pool's queue gauges.
//
// # Basic Usage
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//
//	go func() {
//	    if err := server.Start(); err != nil {
//	        slog.Error("metrics server failed", "error", err)
//	    }
//	}()
//
//	core := registry.CoreMetrics()
//	core.RecordCluster(cliques, capped)
//
// Metrics are exposed at http://localhost:9090/metrics with a health check at /health.
//
// # Component Metrics
//
// Components register their own collectors under an owner name; registering the
// same name twice returns an invalid-class error instead of panicking:
//
//	depth := prometheus.NewGauge(prometheus.GaugeOpts{Name: "annotator_queue_depth", Help: "..."})
//	if err := registry.Register("annotator", "annotator_queue_depth", depth); err != nil {
//	    return err
//	}
package metric
