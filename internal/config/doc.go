// Package config loads, normalizes, and validates heatclip configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// AAI_API_KEY and OPEN_AI_API_KEY. The Config type centralizes every knob the
// CLI needs: where clips and audio live, how heatmap peaks are selected,
// which transcription backend runs, and how hard hosted calls are retried.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical log formats, and clear validation errors.
package config
