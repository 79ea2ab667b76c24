// Package preflight provides the readiness checks the setup stage runs before
// any clip is touched: working directories must be writable, the work volume
// must have room, the catalog must be readable, and the converter binaries
// the configuration depends on must resolve.
//
// The CLI reuses the individual checks to print a status table.
package preflight
