// Package natsclient wraps the NATS Go client with a circuit breaker, connection
// status tracking and context-aware subscriptions. The annotation service uses it
// to receive match documents and publish annotated results.
//
// # Connection lifecycle
//
// A Client moves through Disconnected, Connecting, Connected and Reconnecting.
// Failed connection attempts are counted; after the threshold (default 5) the
// circuit opens and Connect fails fast with ErrCircuitOpen until the backoff
// elapses. Each opening doubles the backoff up to the configured maximum.
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithLogger(logger),
//	    natsclient.WithMetrics(registry),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(context.Background())
//
// # Subscriptions
//
// Handlers receive the raw *nats.Msg so reply subjects and headers are
// available. Each call gets a context bounded by the message timeout:
//
//	sub, err := client.QueueSubscribe(ctx, "represent.matches", "represent",
//	    func(ctx context.Context, msg *nats.Msg) {
//	        // ...
//	    })
//
// Close drains subscriptions before closing the connection and clears any
// stored credentials.
//
// # Testing
//
// NewTestClient starts a nats server container through testcontainers and
// returns a connected client. Integration tests that use it only run when
// INTEGRATION_TESTS is set.
package natsclient
