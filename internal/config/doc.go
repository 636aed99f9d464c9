// Package config loads, normalizes, and validates timelapsebox configuration.
//
// It supplies repository defaults (five minute sessions of 24 shots, 24 fps
// H.264 output at CRF 23), expands user paths including tilde shortcuts, and
// reads TOML files. Stage commands obtain their settings through this package
// so they receive sanitized paths and clear validation errors.
package config
