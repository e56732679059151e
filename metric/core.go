package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "represent"

// Candidate outcomes used as label values
const (
	OutcomeConsidered = "considered"
	OutcomeMalformed  = "malformed"
	OutcomeCapped     = "capped"
)

// Metrics contains the selection and transport metrics shared by every entry point
type Metrics struct {
	// Selection metrics
	ProteinsProcessed  prometheus.Counter
	Candidates         *prometheus.CounterVec
	Clusters           prometheus.Counter
	CappedClusters     prometheus.Counter
	CliquesEvaluated   prometheus.Histogram
	Representatives    prometheus.Counter
	ProcessingDuration *prometheus.HistogramVec

	// Document and message metrics
	DocumentsProcessed *prometheus.CounterVec
	ErrorsTotal        *prometheus.CounterVec

	// NATS metrics
	NATSConnected  prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		ProteinsProcessed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "selection",
				Name:      "proteins_total",
				Help:      "Total number of proteins annotated",
			},
		),

		Candidates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "selection",
				Name:      "candidates_total",
				Help:      "Eligible locations by outcome (considered, malformed, capped)",
			},
			[]string{"outcome"},
		),

		Clusters: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "selection",
				Name:      "clusters_total",
				Help:      "Total number of overlap clusters processed",
			},
		),

		CappedClusters: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "selection",
				Name:      "capped_clusters_total",
				Help:      "Clusters that exceeded the per-cluster candidate cap",
			},
		),

		CliquesEvaluated: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "selection",
				Name:      "cliques_per_cluster",
				Help:      "Number of cliques scored per cluster",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 11),
			},
		),

		Representatives: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "selection",
				Name:      "representatives_total",
				Help:      "Total number of locations flagged representative",
			},
		),

		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "processing",
				Name:      "duration_seconds",
				Help:      "Processing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		DocumentsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "documents",
				Name:      "processed_total",
				Help:      "Match documents processed",
			},
			[]string{"source", "status"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"component", "class"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

// collectors lists every metric for registration
func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.ProteinsProcessed,
		c.Candidates,
		c.Clusters,
		c.CappedClusters,
		c.CliquesEvaluated,
		c.Representatives,
		c.ProcessingDuration,
		c.DocumentsProcessed,
		c.ErrorsTotal,
		c.NATSConnected,
		c.NATSReconnects,
	}
}

// RecordProtein records the candidate counts of one annotated protein
func (c *Metrics) RecordProtein(considered, malformed, capped, representatives int, duration time.Duration) {
	c.ProteinsProcessed.Inc()
	c.Candidates.WithLabelValues(OutcomeConsidered).Add(float64(considered))
	c.Candidates.WithLabelValues(OutcomeMalformed).Add(float64(malformed))
	c.Candidates.WithLabelValues(OutcomeCapped).Add(float64(capped))
	c.Representatives.Add(float64(representatives))
	c.ProcessingDuration.WithLabelValues("protein").Observe(duration.Seconds())
}

// RecordCluster records one processed cluster
func (c *Metrics) RecordCluster(cliques int, capped bool) {
	c.Clusters.Inc()
	c.CliquesEvaluated.Observe(float64(cliques))
	if capped {
		c.CappedClusters.Inc()
	}
}

// RecordDocument records a processed match document
func (c *Metrics) RecordDocument(source, status string, duration time.Duration) {
	c.DocumentsProcessed.WithLabelValues(source, status).Inc()
	c.ProcessingDuration.WithLabelValues("document").Observe(duration.Seconds())
}

// RecordError increments the error counter
func (c *Metrics) RecordError(component, class string) {
	c.ErrorsTotal.WithLabelValues(component, class).Inc()
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}

// RecordNATSReconnect increments reconnection counter
func (c *Metrics) RecordNATSReconnect() {
	c.NATSReconnects.Inc()
}
