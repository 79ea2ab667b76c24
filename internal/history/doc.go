// Package history keeps a SQLite ledger of pipeline runs and their per-item
// outcomes so reruns can be compared and the CLI can list recent activity.
package history
