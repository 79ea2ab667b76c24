// Package services defines shared utilities consumed by the pipeline stages
// and the remote/converter integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, catalog items, and
//     categories for logging.
//   - Structured error markers plus the Wrap helper so item failures can be
//     classified (not found, timeout, converter process, ...) without string
//     matching.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
