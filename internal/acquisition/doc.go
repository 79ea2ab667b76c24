// Package acquisition downloads every catalog item from a remote session into
// the raw directory under its rename.
//
// Each item walks a small state machine (search, export configuration,
// download, rename). A failure at any step is recorded against that item and
// processing moves to the next one; items already present in the raw
// directory are skipped without touching the remote.
package acquisition
