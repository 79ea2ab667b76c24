// Package report defines the JSON documents each stage emits and the shared
// success-rate arithmetic used by the orchestrator gates.
package report
