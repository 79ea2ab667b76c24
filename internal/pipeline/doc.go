// Package pipeline sequences the setup, acquisition, conversion, and
// organization stages into a single run.
//
// A run holds an exclusive lock on the work directory, loads the catalog
// (a load failure ends the run before any stage and writes no report), then
// executes each stage in order and records its outcome. Setup and
// acquisition are critical: when either fails a Decider chooses whether the
// remaining stages still run. Acquisition additionally fails when its success
// rate falls under the configured threshold.
//
// Whatever happens after the catalog loads, including cancellation, the run
// ends by writing pipeline_report.json and recording the run in the history
// ledger.
package pipeline
