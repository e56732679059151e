// Package annotator hosts the representative selection engine behind NATS.
//
// The processor joins a queue group on the input subject, so replicas of the
// service share the load. Every message carries one match document. Intake is
// bounded by a token-bucket rate limiter and a worker pool queue; when the
// queue is full the subscription blocks until a worker frees up or the
// per-message timeout expires, and the document is then dropped.
//
// A worker decodes the document, flags representative locations on every
// protein and publishes the re-encoded document to the output subject. When
// the incoming message has a reply subject the annotated document is also sent
// there, which makes the service usable through request-reply:
//
//	reply, err := nc.Request("represent.matches", doc, 30*time.Second)
//
// Malformed documents are logged, counted and skipped. A requester receives
// an empty reply carrying the Represent-Error header instead.
//
// Published messages carry a fresh Represent-Msg-Id header, the protein and
// representative counts, and Represent-Source-Id when the input carried a
// Represent-Msg-Id or Nats-Msg-Id header.
package annotator
