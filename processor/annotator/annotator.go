package annotator

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"golang.org/x/time/rate"

	"github.com/c360/represent/config"
	"github.com/c360/represent/errors"
	"github.com/c360/represent/match"
	"github.com/c360/represent/metric"
	"github.com/c360/represent/natsclient"
	"github.com/c360/represent/pkg/cache"
	"github.com/c360/represent/pkg/worker"
	"github.com/c360/represent/represent"
)

// Message headers set on published documents
const (
	HeaderMessageID       = "Represent-Msg-Id"
	HeaderSourceID        = "Represent-Source-Id"
	HeaderProteins        = "Represent-Proteins"
	HeaderRepresentatives = "Represent-Representatives"
	HeaderError           = "Represent-Error"
)

// Document outcomes used as metric status labels
const (
	StatusAnnotated = "annotated"
	StatusRejected  = "rejected"
	StatusFailed    = "failed"
	StatusDropped   = "dropped"
	StatusReplayed  = "replayed"
)

const metricsSource = "nats"

// Transport is the subset of natsclient.Client the processor needs
type Transport interface {
	QueueSubscribe(ctx context.Context, subject, queue string, handler natsclient.MessageHandler) (*nats.Subscription, error)
	PublishMsg(ctx context.Context, msg *nats.Msg) error
}

// Config controls subjects and intake of the processor
type Config struct {
	InputSubject  string
	OutputSubject string
	Queue         string
	// RateLimit is documents per second; 0 disables limiting
	RateLimit float64
	Burst     int
	QueueSize int
	Workers   int
	Indent    bool
	// ReplayWindow is how many recent source ids are remembered; 0 disables replay detection
	ReplayWindow int
}

// ConfigFrom extracts the processor settings from the application configuration
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		InputSubject:  cfg.NATS.InputSubject,
		OutputSubject: cfg.NATS.OutputSubject,
		Queue:         cfg.NATS.Queue,
		RateLimit:     cfg.Service.RateLimit,
		Burst:         cfg.Service.Burst,
		QueueSize:     cfg.Service.QueueSize,
		Workers:       cfg.Service.Workers,
		Indent:        cfg.Service.Indent,
		ReplayWindow:  cfg.Service.ReplayWindow,
	}
}

// Stats counts documents by outcome
type Stats struct {
	Received  int64 `json:"received"`
	Annotated int64 `json:"annotated"`
	Rejected  int64 `json:"rejected"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
	Replayed  int64 `json:"replayed"`
}

// Processor annotates match documents received over NATS and publishes the result
type Processor struct {
	cfg       Config
	engine    *represent.Engine
	transport Transport
	logger    *slog.Logger
	registry  *metric.MetricsRegistry
	metrics   *metric.Metrics
	limiter   *rate.Limiter
	pool      *worker.Pool[*nats.Msg]
	// replays maps a source id to the document published for it
	replays cache.Cache[published]

	sub    *nats.Subscription
	cancel context.CancelFunc

	received  atomic.Int64
	annotated atomic.Int64
	rejected  atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
	replayed  atomic.Int64

	lifecycleMu sync.Mutex
	running     bool
}

// Option configures a Processor
type Option func(*Processor)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics records document outcomes and worker pool metrics in the registry
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(p *Processor) {
		p.registry = registry
	}
}

// New creates a processor. The engine is shared by every worker.
func New(cfg Config, engine *represent.Engine, transport Transport, opts ...Option) (*Processor, error) {
	if engine == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Annotator", "New", "engine required")
	}
	if transport == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Annotator", "New", "NATS transport required")
	}
	if cfg.InputSubject == "" || cfg.OutputSubject == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Annotator", "New", "input and output subjects required")
	}
	if cfg.RateLimit < 0 || cfg.ReplayWindow < 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Annotator", "New", "negative rate limit or replay window")
	}

	p := &Processor{
		cfg:       cfg,
		engine:    engine,
		transport: transport,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "annotator")

	if cfg.RateLimit > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1))
	}

	var poolOpts []worker.Option[*nats.Msg]
	if p.registry != nil {
		p.metrics = p.registry.CoreMetrics()
		poolOpts = append(poolOpts, worker.WithMetricsRegistry[*nats.Msg](p.registry, "annotator"))
	}
	p.pool = worker.NewPool(cfg.Workers, cfg.QueueSize, p.process, poolOpts...)

	if cfg.ReplayWindow > 0 {
		replays, err := cache.NewLRU(cfg.ReplayWindow, cache.WithMetrics[published](p.registry, "annotator_replay"))
		if err != nil {
			return nil, err
		}
		p.replays = replays
	}

	return p, nil
}

// Start launches the workers and subscribes to the input subject.
// Work already accepted survives cancellation of ctx until Stop.
func (p *Processor) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.running {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Annotator", "Start", "check running state")
	}

	workCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := p.pool.Start(workCtx); err != nil {
		cancel()
		return errors.WrapFatal(err, "Annotator", "Start", "start worker pool")
	}

	sub, err := p.transport.QueueSubscribe(workCtx, p.cfg.InputSubject, p.cfg.Queue, p.handleMessage)
	if err != nil {
		_ = p.pool.Stop(time.Second)
		cancel()
		return errors.WrapTransient(err, "Annotator", "Start", fmt.Sprintf("subscribe to %s", p.cfg.InputSubject))
	}

	p.sub = sub
	p.cancel = cancel
	p.running = true

	p.logger.Info("Annotator started",
		"input_subject", p.cfg.InputSubject,
		"output_subject", p.cfg.OutputSubject,
		"queue", p.cfg.Queue,
		"rate_limit", p.cfg.RateLimit)
	return nil
}

// Stop drains the subscription, finishes queued documents and stops the workers.
// Work still pending after timeout is abandoned.
func (p *Processor) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.running {
		return nil
	}
	p.running = false
	defer p.cancel()

	deadline := time.Now().Add(timeout)

	if p.sub != nil {
		if err := p.sub.Drain(); err != nil {
			p.logger.Warn("Failed to drain subscription", "error", err)
		}
		for p.sub.IsValid() && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
	}

	if err := p.pool.Stop(time.Until(deadline)); err != nil {
		return errors.WrapTransient(fmt.Errorf("shutdown timeout after %v: %w", timeout, err),
			"Annotator", "Stop", "graceful shutdown")
	}

	stats := p.Stats()
	p.logger.Info("Annotator stopped",
		"received", stats.Received,
		"annotated", stats.Annotated,
		"rejected", stats.Rejected,
		"failed", stats.Failed,
		"dropped", stats.Dropped,
		"replayed", stats.Replayed)
	return nil
}

// Stats returns document counters since New
func (p *Processor) Stats() Stats {
	return Stats{
		Received:  p.received.Load(),
		Annotated: p.annotated.Load(),
		Rejected:  p.rejected.Load(),
		Failed:    p.failed.Load(),
		Dropped:   p.dropped.Load(),
		Replayed:  p.replayed.Load(),
	}
}

// handleMessage applies the intake limit and queues the message for a worker.
// It blocks the subscription while the queue is full.
func (p *Processor) handleMessage(ctx context.Context, msg *nats.Msg) {
	p.received.Add(1)

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			p.drop(msg, errors.WrapTransient(fmt.Errorf("%w: %v", errors.ErrRateLimited, err),
				"Annotator", "handleMessage", "wait for rate limiter"))
			return
		}
	}

	if err := p.pool.SubmitWait(ctx, msg); err != nil {
		p.drop(msg, errors.WrapTransient(err, "Annotator", "handleMessage", "queue document"))
	}
}

func (p *Processor) drop(msg *nats.Msg, err error) {
	p.dropped.Add(1)
	p.logger.Warn("Dropped match document", "subject", msg.Subject, "error", err)
	if p.metrics != nil {
		p.metrics.RecordDocument(metricsSource, StatusDropped, 0)
		p.metrics.RecordError("annotator", errors.Classify(err).String())
	}
}

// process decodes, annotates and publishes one document
func (p *Processor) process(ctx context.Context, msg *nats.Msg) error {
	start := time.Now()
	sourceID := sourceID(msg)

	if prev, ok := p.lookupReplay(sourceID); ok {
		p.replay(ctx, msg, sourceID, prev, start)
		return nil
	}

	set, err := match.DecodeBytes(msg.Data)
	if err != nil {
		p.rejected.Add(1)
		p.record(StatusRejected, err, start)
		p.logger.Warn("Rejected malformed match document",
			"subject", msg.Subject,
			"source_id", sourceID,
			"size_bytes", len(msg.Data),
			"error", err)
		p.replyError(ctx, msg, err)
		return err
	}

	summary, err := p.engine.AnnotateAll(ctx, set)
	if err != nil {
		p.failed.Add(1)
		p.record(StatusFailed, err, start)
		p.logger.Error("Failed to annotate match document", "source_id", sourceID, "error", err)
		p.replyError(ctx, msg, err)
		return err
	}

	var buf bytes.Buffer
	if err := match.Encode(&buf, set, p.cfg.Indent); err != nil {
		p.failed.Add(1)
		p.record(StatusFailed, err, start)
		return err
	}

	out := nats.NewMsg(p.cfg.OutputSubject)
	out.Data = buf.Bytes()
	out.Header.Set(HeaderMessageID, uuid.NewString())
	out.Header.Set(HeaderProteins, fmt.Sprint(summary.Proteins))
	out.Header.Set(HeaderRepresentatives, fmt.Sprint(summary.Representatives))
	if sourceID != "" {
		out.Header.Set(HeaderSourceID, sourceID)
	}

	if err := p.transport.PublishMsg(ctx, out); err != nil {
		p.failed.Add(1)
		p.record(StatusFailed, err, start)
		p.logger.Error("Failed to publish annotated document",
			"output_subject", p.cfg.OutputSubject, "error", err)
		return errors.WrapTransient(err, "Annotator", "process", "publish annotated document")
	}

	p.remember(sourceID, published{data: out.Data, header: out.Header})
	p.reply(ctx, msg, out.Data, out.Header)

	p.annotated.Add(1)
	p.record(StatusAnnotated, nil, start)
	p.logger.Debug("Published annotated document",
		"output_subject", p.cfg.OutputSubject,
		"message_id", out.Header.Get(HeaderMessageID),
		"proteins", summary.Proteins,
		"representatives", summary.Representatives,
		"duration", time.Since(start))
	return nil
}

// published is the output kept for replayed source ids
type published struct {
	data   []byte
	header nats.Header
}

func (p *Processor) lookupReplay(sourceID string) (published, bool) {
	if p.replays == nil || sourceID == "" {
		return published{}, false
	}
	return p.replays.Get(sourceID)
}

func (p *Processor) remember(sourceID string, out published) {
	if p.replays == nil || sourceID == "" {
		return
	}
	if _, err := p.replays.Set(sourceID, out); err != nil {
		p.logger.Warn("Failed to remember published document", "source_id", sourceID, "error", err)
	}
}

// replay answers a redelivered document from the replay cache without
// publishing it to the output subject again
func (p *Processor) replay(ctx context.Context, msg *nats.Msg, sourceID string, prev published, start time.Time) {
	p.replayed.Add(1)
	p.record(StatusReplayed, nil, start)
	p.logger.Debug("Replayed annotated document", "source_id", sourceID)
	p.reply(ctx, msg, prev.data, prev.header)
}

func (p *Processor) reply(ctx context.Context, msg *nats.Msg, data []byte, header nats.Header) {
	if msg.Reply == "" {
		return
	}
	reply := nats.NewMsg(msg.Reply)
	reply.Data = data
	reply.Header = header
	if err := p.transport.PublishMsg(ctx, reply); err != nil {
		p.logger.Warn("Failed to reply with annotated document", "reply", msg.Reply, "error", err)
	}
}

func (p *Processor) record(status string, err error, start time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordDocument(metricsSource, status, time.Since(start))
	if err != nil {
		p.metrics.RecordError("annotator", errors.Classify(err).String())
	}
}

// replyError answers a request with an empty body and the error in a header
func (p *Processor) replyError(ctx context.Context, msg *nats.Msg, cause error) {
	if msg.Reply == "" {
		return
	}
	reply := nats.NewMsg(msg.Reply)
	reply.Header.Set(HeaderError, cause.Error())
	if err := p.transport.PublishMsg(ctx, reply); err != nil {
		p.logger.Warn("Failed to send error reply", "reply", msg.Reply, "error", err)
	}
}

// sourceID returns the correlation id carried by the incoming message, if any
func sourceID(msg *nats.Msg) string {
	if msg.Header == nil {
		return ""
	}
	if id := msg.Header.Get(HeaderMessageID); id != "" {
		return id
	}
	return msg.Header.Get(nats.MsgIdHdr)
}
