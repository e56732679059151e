package annotator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/c360/represent/config"
	"github.com/c360/represent/errors"
	"github.com/c360/represent/match"
	"github.com/c360/represent/metric"
	"github.com/c360/represent/natsclient"
	"github.com/c360/represent/represent"
)

const document = `{
  "P1": {
    "PF00001": {"member_db": "Pfam", "locations": [{"start": 1, "end": 100, "representative": false}]},
    "SM00002": {"member_db": "SMART", "locations": [{"start": 10, "end": 60, "representative": false}]},
    "PTHR0003": {"member_db": "PANTHER", "locations": [{"start": 1, "end": 200, "representative": "true"}]}
  }
}`

type mockTransport struct {
	mock.Mock

	mu        sync.Mutex
	handler   natsclient.MessageHandler
	published []*nats.Msg
}

func (m *mockTransport) QueueSubscribe(
	ctx context.Context, subject, queue string, handler natsclient.MessageHandler,
) (*nats.Subscription, error) {
	m.mu.Lock()
	m.handler = handler
	m.mu.Unlock()
	args := m.Called(subject, queue)
	return nil, args.Error(0)
}

func (m *mockTransport) PublishMsg(_ context.Context, msg *nats.Msg) error {
	args := m.Called(msg.Subject)
	if args.Error(0) == nil {
		m.mu.Lock()
		m.published = append(m.published, msg)
		m.mu.Unlock()
	}
	return args.Error(0)
}

func (m *mockTransport) deliver(ctx context.Context, msg *nats.Msg) {
	m.mu.Lock()
	handler := m.handler
	m.mu.Unlock()
	handler(ctx, msg)
}

func (m *mockTransport) sent(subject string) []*nats.Msg {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*nats.Msg
	for _, msg := range m.published {
		if msg.Subject == subject {
			out = append(out, msg)
		}
	}
	return out
}

func testConfig() Config {
	cfg := ConfigFrom(config.Default())
	cfg.RateLimit = 0
	cfg.Workers = 2
	cfg.QueueSize = 8
	return cfg
}

// newTestProcessor starts a processor on a mock transport. A non-nil registry
// receives both engine and processor metrics.
func newTestProcessor(t *testing.T, cfg Config, registry *metric.MetricsRegistry) (*Processor, *mockTransport) {
	t.Helper()

	engine, err := represent.NewEngine(represent.DefaultConfig(),
		represent.WithWorkers(1), represent.WithMetrics(registry))
	require.NoError(t, err)

	transport := &mockTransport{}
	transport.On("QueueSubscribe", cfg.InputSubject, cfg.Queue).Return(nil)

	var opts []Option
	if registry != nil {
		opts = append(opts, WithMetrics(registry))
	}
	p, err := New(cfg, engine, transport, opts...)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() { _ = p.Stop(time.Second) })
	return p, transport
}

func inputMsg(data string) *nats.Msg {
	msg := nats.NewMsg("represent.matches")
	msg.Data = []byte(data)
	return msg
}

func TestNew_Validation(t *testing.T) {
	engine, err := represent.NewEngine(represent.DefaultConfig())
	require.NoError(t, err)
	transport := &mockTransport{}

	_, err = New(testConfig(), nil, transport)
	assert.True(t, errors.IsFatal(err))

	_, err = New(testConfig(), engine, nil)
	assert.True(t, errors.IsFatal(err))

	cfg := testConfig()
	cfg.OutputSubject = ""
	_, err = New(cfg, engine, transport)
	assert.True(t, errors.IsInvalid(err))

	cfg = testConfig()
	cfg.RateLimit = -1
	_, err = New(cfg, engine, transport)
	assert.True(t, errors.IsInvalid(err))

	cfg = testConfig()
	cfg.ReplayWindow = -1
	_, err = New(cfg, engine, transport)
	assert.True(t, errors.IsInvalid(err))
}

func TestConfigFrom(t *testing.T) {
	app := config.Default()
	cfg := ConfigFrom(app)

	assert.Equal(t, "represent.matches", cfg.InputSubject)
	assert.Equal(t, "represent.annotated", cfg.OutputSubject)
	assert.Equal(t, "represent", cfg.Queue)
	assert.Equal(t, app.Service.Workers, cfg.Workers)
	assert.Equal(t, app.Service.QueueSize, cfg.QueueSize)
	assert.Equal(t, app.Service.ReplayWindow, cfg.ReplayWindow)
}

func TestStart_Lifecycle(t *testing.T) {
	p, transport := newTestProcessor(t, testConfig(), nil)
	transport.AssertCalled(t, "QueueSubscribe", "represent.matches", "represent")

	err := p.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadyStarted)

	require.NoError(t, p.Stop(time.Second))
	require.NoError(t, p.Stop(time.Second))
}

func TestStart_SubscribeFailure(t *testing.T) {
	engine, err := represent.NewEngine(represent.DefaultConfig())
	require.NoError(t, err)

	transport := &mockTransport{}
	transport.On("QueueSubscribe", mock.Anything, mock.Anything).Return(natsclient.ErrNotConnected)

	p, err := New(testConfig(), engine, transport)
	require.NoError(t, err)

	err = p.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, natsclient.ErrNotConnected)
	assert.True(t, errors.IsTransient(err))
}

func TestProcess_PublishesAnnotatedDocument(t *testing.T) {
	p, transport := newTestProcessor(t, testConfig(), nil)
	transport.On("PublishMsg", "represent.annotated").Return(nil)

	msg := inputMsg(document)
	msg.Header.Set(nats.MsgIdHdr, "upstream-1")
	transport.deliver(context.Background(), msg)
	require.NoError(t, p.Stop(5*time.Second))

	out := transport.sent("represent.annotated")
	require.Len(t, out, 1)
	assert.NotEmpty(t, out[0].Header.Get(HeaderMessageID))
	assert.Equal(t, "upstream-1", out[0].Header.Get(HeaderSourceID))
	assert.Equal(t, "1", out[0].Header.Get(HeaderProteins))
	assert.Equal(t, "1", out[0].Header.Get(HeaderRepresentatives))

	set, err := match.DecodeBytes(out[0].Data)
	require.NoError(t, err)
	protein := set.Proteins["P1"]
	require.NotNil(t, protein)
	assert.True(t, protein.Matches["PF00001"].Locations[0].Representative)
	assert.False(t, protein.Matches["SM00002"].Locations[0].Representative)
	assert.True(t, protein.Matches["PTHR0003"].Locations[0].Representative, "ineligible flag untouched")

	assert.Equal(t, Stats{Received: 1, Annotated: 1}, p.Stats())
}

func TestProcess_RepliesToRequester(t *testing.T) {
	p, transport := newTestProcessor(t, testConfig(), nil)
	transport.On("PublishMsg", "represent.annotated").Return(nil)
	transport.On("PublishMsg", "_INBOX.test").Return(nil)

	msg := inputMsg(document)
	msg.Reply = "_INBOX.test"
	transport.deliver(context.Background(), msg)
	require.NoError(t, p.Stop(5*time.Second))

	out := transport.sent("represent.annotated")
	replies := transport.sent("_INBOX.test")
	require.Len(t, out, 1)
	require.Len(t, replies, 1)
	assert.Equal(t, out[0].Data, replies[0].Data)
	assert.Empty(t, replies[0].Header.Get(HeaderError))
}

func TestProcess_ReplaysRedeliveredDocument(t *testing.T) {
	cfg := testConfig()
	cfg.Workers = 1
	registry := metric.NewMetricsRegistry()
	p, transport := newTestProcessor(t, cfg, registry)
	transport.On("PublishMsg", "represent.annotated").Return(nil)
	transport.On("PublishMsg", "_INBOX.first").Return(nil)
	transport.On("PublishMsg", "_INBOX.second").Return(nil)

	first := inputMsg(document)
	first.Reply = "_INBOX.first"
	first.Header.Set(HeaderMessageID, "doc-1")
	second := inputMsg(document)
	second.Reply = "_INBOX.second"
	second.Header.Set(HeaderMessageID, "doc-1")

	transport.deliver(context.Background(), first)
	transport.deliver(context.Background(), second)
	require.NoError(t, p.Stop(5*time.Second))

	out := transport.sent("represent.annotated")
	require.Len(t, out, 1)
	replies := transport.sent("_INBOX.second")
	require.Len(t, replies, 1)
	assert.Equal(t, out[0].Data, replies[0].Data)
	assert.Equal(t, out[0].Header.Get(HeaderMessageID), replies[0].Header.Get(HeaderMessageID))

	assert.Equal(t, Stats{Received: 2, Annotated: 1, Replayed: 1}, p.Stats())
	core := registry.CoreMetrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(core.DocumentsProcessed.WithLabelValues("nats", StatusReplayed)))
}

func TestProcess_ReplayDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Workers = 1
	cfg.ReplayWindow = 0
	p, transport := newTestProcessor(t, cfg, nil)
	transport.On("PublishMsg", "represent.annotated").Return(nil)

	for i := 0; i < 2; i++ {
		msg := inputMsg(document)
		msg.Header.Set(nats.MsgIdHdr, "doc-1")
		transport.deliver(context.Background(), msg)
	}
	require.NoError(t, p.Stop(5*time.Second))

	assert.Len(t, transport.sent("represent.annotated"), 2)
	assert.Equal(t, Stats{Received: 2, Annotated: 2}, p.Stats())
}

func TestProcess_MalformedDocumentSkipped(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	p, transport := newTestProcessor(t, testConfig(), registry)
	transport.On("PublishMsg", "_INBOX.bad").Return(nil)

	transport.deliver(context.Background(), inputMsg("not json"))

	withReply := inputMsg(`{"P1": []}`)
	withReply.Reply = "_INBOX.bad"
	transport.deliver(context.Background(), withReply)
	require.NoError(t, p.Stop(5*time.Second))

	assert.Empty(t, transport.sent("represent.annotated"))
	replies := transport.sent("_INBOX.bad")
	require.Len(t, replies, 1)
	assert.Empty(t, replies[0].Data)
	assert.NotEmpty(t, replies[0].Header.Get(HeaderError))

	assert.Equal(t, Stats{Received: 2, Rejected: 2}, p.Stats())

	core := registry.CoreMetrics()
	assert.Equal(t, 2.0, testutil.ToFloat64(core.DocumentsProcessed.WithLabelValues("nats", StatusRejected)))
	assert.Equal(t, 2.0, testutil.ToFloat64(core.ErrorsTotal.WithLabelValues("annotator", "fatal")))
}

func TestProcess_PublishFailure(t *testing.T) {
	p, transport := newTestProcessor(t, testConfig(), nil)
	transport.On("PublishMsg", "represent.annotated").Return(natsclient.ErrNotConnected)

	transport.deliver(context.Background(), inputMsg(document))
	require.NoError(t, p.Stop(5*time.Second))

	assert.Equal(t, Stats{Received: 1, Failed: 1}, p.Stats())
}

func TestProcess_Metrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	p, transport := newTestProcessor(t, testConfig(), registry)
	transport.On("PublishMsg", "represent.annotated").Return(nil)

	for i := 0; i < 3; i++ {
		transport.deliver(context.Background(), inputMsg(document))
	}
	require.NoError(t, p.Stop(5*time.Second))

	core := registry.CoreMetrics()
	assert.Equal(t, 3.0, testutil.ToFloat64(core.DocumentsProcessed.WithLabelValues("nats", StatusAnnotated)))
	assert.Equal(t, 3.0, testutil.ToFloat64(core.ProteinsProcessed))
	assert.Equal(t, 3.0, testutil.ToFloat64(core.Representatives))
}

func TestHandleMessage_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 0.001
	cfg.Burst = 1
	p, transport := newTestProcessor(t, cfg, nil)
	transport.On("PublishMsg", "represent.annotated").Return(nil)

	transport.deliver(context.Background(), inputMsg(document))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	transport.deliver(ctx, inputMsg(document))
	require.NoError(t, p.Stop(5*time.Second))

	assert.Equal(t, Stats{Received: 2, Annotated: 1, Dropped: 1}, p.Stats())
	assert.Len(t, transport.sent("represent.annotated"), 1)
}

func TestStop_FinishesQueuedDocuments(t *testing.T) {
	cfg := testConfig()
	cfg.Workers = 1
	cfg.QueueSize = 16
	p, transport := newTestProcessor(t, cfg, nil)
	transport.On("PublishMsg", "represent.annotated").Return(nil)

	for i := 0; i < 10; i++ {
		transport.deliver(context.Background(), inputMsg(document))
	}
	require.NoError(t, p.Stop(10*time.Second))

	assert.Len(t, transport.sent("represent.annotated"), 10)
	assert.Equal(t, int64(10), p.Stats().Annotated)
}
