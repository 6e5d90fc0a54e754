// Package config loads, normalizes, and validates servarrsync configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for secrets
// such as PLEX_TOKEN. Duration values accept either bare seconds ("30") or a
// single s/m/h/d suffix ("30s", "5m").
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, a stable Plex client identifier, and clear validation
// errors.
package config
