// Package logging builds the slog loggers used by every duatanim stage.
//
// Console output leads each line with the run, the component or stage, and
// the catalog item with its category, taken from the context helpers in
// services. JSON output keeps the same fields as flat keys. Warnings and
// errors logged through WarnWithContext and ErrorWithContext always carry an
// event type and an operator hint.
package logging
