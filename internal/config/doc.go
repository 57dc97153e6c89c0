// Package config loads, normalizes, and validates podgen configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PODGEN_API_TOKEN and PODGEN_BASE_URL. The Config type centralizes every knob
// the CLI, the controllers and the player need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
