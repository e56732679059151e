// Package errors provides standardized error handling for the representative domain
// selection tools.
//
// # Error Classification
//
// Errors fall into three classes:
//
//   - Transient: NATS connection issues, timeouts, rate limiting (retry recommended)
//   - Invalid: a malformed location or fragment inside an otherwise valid document.
//     These are recovered locally; the owning candidate is dropped and processing continues.
//   - Fatal: a match document that is not valid JSON or lacks the nested
//     sequence → accession → match structure, or an unusable configuration.
//     The whole invocation stops.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions set a classification:
//
//	errors.WrapTransient(err, "Client", "Connect", "establish connection")
//	errors.WrapInvalid(err, "Engine", "extract", "build coverage")
//	errors.WrapFatal(err, "Decoder", "Decode", "parse document")
//
// The generic Wrap() keeps whatever classification the wrapped error already has.
//
// # Standard Error Variables
//
// Use the package variables rather than ad-hoc messages so callers can match them:
//
//	if errors.Is(err, errors.ErrMalformedInput) {
//	    os.Exit(1)
//	}
//
// The package re-exports Is, As and New so callers need a single import.
package errors
