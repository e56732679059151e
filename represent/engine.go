package represent

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/c360/represent/errors"
	"github.com/c360/represent/match"
	"github.com/c360/represent/metric"
	"github.com/c360/represent/pkg/worker"
)

// Engine selects representative locations. It holds no per-protein state, so a
// single Engine may annotate different proteins from many goroutines.
type Engine struct {
	cfg       Config
	enumerate Enumerator
	workers   int
	logger    *slog.Logger
	metrics   *metric.Metrics
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger; the default is slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records selection metrics into the registry's core metrics
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(e *Engine) {
		if registry != nil {
			e.metrics = registry.CoreMetrics()
		}
	}
}

// WithWorkers sets how many proteins AnnotateAll processes in parallel.
// Values below 1 select GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// NewEngine validates cfg and builds an engine
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapFatal(err, "Engine", "NewEngine", "validate config")
	}

	dbs := make([]string, len(cfg.Databases))
	copy(dbs, cfg.Databases)
	cfg.Databases = dbs

	e := &Engine{
		cfg:       cfg,
		enumerate: enumeratorFor(cfg.Strategy),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	return e, nil
}

// Config returns the engine's tunables
func (e *Engine) Config() Config {
	return e.cfg
}

// Report describes what Annotate did to one protein
type Report struct {
	ProteinID string `json:"protein_id"`
	// Candidates is the number of well-formed eligible locations
	Candidates int `json:"candidates"`
	// Malformed is the number of eligible locations dropped as malformed
	Malformed int `json:"malformed"`
	Clusters  int `json:"clusters"`
	// Capped is the number of candidates removed by the per-cluster cap
	Capped          int           `json:"capped"`
	Cliques         int           `json:"cliques"`
	Representatives int           `json:"representatives"`
	Duration        time.Duration `json:"duration_ns"`
}

// Select clusters the candidates and picks the best subset of each cluster.
// It does not touch any location.
func (e *Engine) Select(candidates []*Candidate) []Selection {
	clusters := ClusterCandidates(candidates)
	selections := make([]Selection, 0, len(clusters))
	for _, cluster := range clusters {
		selections = append(selections, selectCluster(cluster, e.cfg, e.enumerate))
	}
	return selections
}

// Annotate writes the representative flag of every eligible location of p:
// true for the winners of each cluster, false for every other eligible location.
// Locations of ineligible databases are left as they are.
func (e *Engine) Annotate(p *match.Protein) Report {
	start := time.Now()
	report := Report{ProteinID: p.ID}

	candidates, rejected := Extract(p, e.cfg)
	report.Candidates = len(candidates)
	report.Malformed = len(rejected)

	for _, r := range rejected {
		r.Location.SetRepresentative(false)
		e.logger.Warn("Skipping malformed location",
			"protein", p.ID, "accession", r.Accession, "error", r.Err)
		if e.metrics != nil {
			e.metrics.RecordError("engine", errors.Classify(r.Err).String())
		}
	}
	for _, c := range candidates {
		c.Location.SetRepresentative(false)
	}

	for _, sel := range e.Select(candidates) {
		report.Clusters++
		report.Capped += len(sel.Dropped)
		report.Cliques += sel.Cliques
		for _, w := range sel.Winners {
			w.Location.SetRepresentative(true)
			report.Representatives++
		}
		if len(sel.Dropped) > 0 {
			e.logger.Debug("Cluster capped",
				"protein", p.ID, "kept", len(sel.Considered), "dropped", len(sel.Dropped))
		}
		if e.metrics != nil {
			e.metrics.RecordCluster(sel.Cliques, len(sel.Dropped) > 0)
		}
	}

	report.Duration = time.Since(start)
	if e.metrics != nil {
		e.metrics.RecordProtein(report.Candidates-report.Capped, report.Malformed,
			report.Capped, report.Representatives, report.Duration)
	}
	e.logger.Debug("Protein annotated",
		"protein", p.ID,
		"candidates", report.Candidates,
		"clusters", report.Clusters,
		"representatives", report.Representatives)
	return report
}

// Summary aggregates the reports of one document
type Summary struct {
	Proteins        int           `json:"proteins"`
	Candidates      int           `json:"candidates"`
	Malformed       int           `json:"malformed"`
	Clusters        int           `json:"clusters"`
	Capped          int           `json:"capped"`
	Cliques         int           `json:"cliques"`
	Representatives int           `json:"representatives"`
	Duration        time.Duration `json:"duration_ns"`
	// Reports are ordered by protein id
	Reports []Report `json:"reports,omitempty"`
}

func (s *Summary) add(r Report) {
	s.Proteins++
	s.Candidates += r.Candidates
	s.Malformed += r.Malformed
	s.Clusters += r.Clusters
	s.Capped += r.Capped
	s.Cliques += r.Cliques
	s.Representatives += r.Representatives
}

type annotateJob struct {
	index   int
	protein *match.Protein
}

// AnnotateAll annotates every protein of set on a worker pool. Each protein is
// handled by exactly one worker. A cancelled context stops the run and returns
// the context error; proteins already annotated keep their flags.
func (e *Engine) AnnotateAll(ctx context.Context, set *match.Set) (Summary, error) {
	start := time.Now()
	ids := set.IDs()
	reports := make([]Report, len(ids))

	workers := min(e.workers, max(len(ids), 1))
	pool := worker.NewPool(workers, workers*2, func(_ context.Context, job annotateJob) error {
		reports[job.index] = e.Annotate(job.protein)
		return nil
	})
	if err := pool.Start(ctx); err != nil {
		return Summary{}, errors.WrapFatal(err, "Engine", "AnnotateAll", "start worker pool")
	}

	for i, id := range ids {
		if err := pool.SubmitWait(ctx, annotateJob{index: i, protein: set.Proteins[id]}); err != nil {
			_ = pool.Stop(time.Second)
			return Summary{}, errors.WrapTransient(err, "Engine", "AnnotateAll", "submit protein")
		}
	}
	if err := pool.Drain(ctx); err != nil {
		return Summary{}, errors.WrapTransient(err, "Engine", "AnnotateAll", "drain worker pool")
	}
	if err := ctx.Err(); err != nil {
		return Summary{}, errors.WrapTransient(err, "Engine", "AnnotateAll", "annotate document")
	}

	summary := Summary{Reports: reports}
	for _, r := range reports {
		summary.add(r)
	}
	summary.Duration = time.Since(start)

	e.logger.Info("Document annotated",
		"proteins", summary.Proteins,
		"candidates", summary.Candidates,
		"malformed", summary.Malformed,
		"representatives", summary.Representatives,
		"duration", summary.Duration)
	return summary, nil
}
