// Package config loads, normalizes, and validates bobbin configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the daemon and CLI need: the watched log directory, the primary log file
// name, archive and socket locations, and Kafka forwarding settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized absolute paths, canonical log formats, and clear validation
// errors.
package config
