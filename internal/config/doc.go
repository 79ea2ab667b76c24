// Package config loads, normalizes, and validates duatanim configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for the
// remote service credentials. The Config type centralizes the directory
// layout, remote session timing, converter settings, and pipeline gates so
// every stage reads the same sanitized values.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical log formats, and clear validation errors.
package config
