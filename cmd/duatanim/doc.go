// Command duatanim acquires motion clips from a remote catalog, converts them
// to glTF binaries, and files them into per-category folders.
//
// `duatanim run` executes every stage in order. `acquire`, `convert`, and
// `organize` run a single stage against whatever is already on disk, so an
// interrupted run can be resumed piecemeal. `catalog`, `history`, `check`,
// and `config` are read-only helpers.
package main
