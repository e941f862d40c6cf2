// Package ops defines shared utilities consumed by the naming, version,
// metadata, and workflow packages.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (malformed names, I/O, cancellation) with errors.Is.
//   - Context helpers that stamp request ids, operation names, and file paths
//     for logging.
package ops
