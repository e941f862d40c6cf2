// Package config loads, normalizes, and validates Atelier configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ATELIER_PROJECTS_ROOT. The Config type centralizes the naming conventions,
// version policy, metadata backend, and preview settings the CLI needs.
//
// Always obtain settings through this package so downstream code receives
// sanitized folder names, canonical log formats, and clear validation errors.
package config
