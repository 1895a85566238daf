// Package config loads, normalizes, and validates cfts configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CAL_ROOT. The Config type centralizes every knob the launcher, the
// calibration managers, and the MEMR summary tool need, so the calibration
// trees, hardware manifest, and state directories are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
