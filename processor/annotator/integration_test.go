package annotator

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/suite"

	"github.com/c360/represent/match"
	"github.com/c360/represent/natsclient"
	"github.com/c360/represent/represent"
)

type AnnotatorIntegrationSuite struct {
	suite.Suite

	nats      *natsclient.TestClient
	processor *Processor
	cfg       Config
}

func TestAnnotatorIntegration(t *testing.T) {
	if os.Getenv("INTEGRATION_TESTS") == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run NATS integration tests")
	}
	suite.Run(t, new(AnnotatorIntegrationSuite))
}

func (s *AnnotatorIntegrationSuite) SetupSuite() {
	tc, err := natsclient.NewSharedTestClient()
	s.Require().NoError(err)
	s.nats = tc
}

func (s *AnnotatorIntegrationSuite) TearDownSuite() {
	if s.nats != nil {
		s.nats.Terminate()
	}
}

func (s *AnnotatorIntegrationSuite) SetupTest() {
	s.cfg = testConfig()
	s.cfg.InputSubject = "it.matches." + s.T().Name()
	s.cfg.OutputSubject = "it.annotated." + s.T().Name()

	engine, err := represent.NewEngine(represent.DefaultConfig())
	s.Require().NoError(err)

	s.processor, err = New(s.cfg, engine, s.nats.Client)
	s.Require().NoError(err)
	s.Require().NoError(s.processor.Start(context.Background()))
	s.Require().NoError(s.nats.Client.Flush(context.Background()))
}

func (s *AnnotatorIntegrationSuite) TearDownTest() {
	s.Require().NoError(s.processor.Stop(10 * time.Second))
}

func (s *AnnotatorIntegrationSuite) TestRequestReply() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reply, err := s.nats.Client.Request(ctx, s.cfg.InputSubject, []byte(document))
	s.Require().NoError(err)
	s.Empty(reply.Header.Get(HeaderError))
	s.Equal("1", reply.Header.Get(HeaderRepresentatives))

	set, err := match.DecodeBytes(reply.Data)
	s.Require().NoError(err)
	s.True(set.Proteins["P1"].Matches["PF00001"].Locations[0].Representative)
	s.False(set.Proteins["P1"].Matches["SM00002"].Locations[0].Representative)
}

func (s *AnnotatorIntegrationSuite) TestPublishesToOutputSubject() {
	ctx := context.Background()
	received := make(chan *nats.Msg, 1)
	s.Require().NoError(s.nats.Client.Subscribe(ctx, s.cfg.OutputSubject, func(_ context.Context, msg *nats.Msg) {
		received <- msg
	}))
	s.Require().NoError(s.nats.Client.Flush(ctx))

	s.Require().NoError(s.nats.Client.Publish(ctx, s.cfg.InputSubject, []byte(document)))

	select {
	case msg := <-received:
		s.NotEmpty(msg.Header.Get(HeaderMessageID))
		s.Equal("1", msg.Header.Get(HeaderProteins))
	case <-time.After(10 * time.Second):
		s.Fail("annotated document not published")
	}
}

func (s *AnnotatorIntegrationSuite) TestMalformedRequestGetsErrorReply() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reply, err := s.nats.Client.Request(ctx, s.cfg.InputSubject, []byte(`[1, 2, 3]`))
	s.Require().NoError(err)
	s.NotEmpty(reply.Header.Get(HeaderError))
	s.Empty(reply.Data)

	s.Eventually(func() bool { return s.processor.Stats().Rejected == 1 }, 5*time.Second, 10*time.Millisecond)
}
