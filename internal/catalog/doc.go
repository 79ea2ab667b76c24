// Package catalog models the fixed set of motion clips the pipeline acquires.
//
// A Catalog maps categories to canonical clip names and resolves each name to
// its rename: the file-system-safe identifier used for every file the stages
// produce. Catalogs are loaded once from the JSON catalog config and are
// immutable for the run. Loading rejects catalogs a run could not process
// unambiguously (missing keys, duplicate names, colliding renames) with a
// LoadError that carries services.ErrConfigLoad.
package catalog
