// Package organizer files converted clips into one folder per catalog
// category and writes the conversion report.
//
// Organizing is idempotent: a clip already in its category folder counts as
// placed, a clip missing from the converted directory is skipped, and files
// the catalog does not name stay where they are.
package organizer
