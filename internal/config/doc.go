// ABOUTME: Configuration package documentation
// ABOUTME: Explains where settings come from and their precedence
// Package config loads cuedeck settings.
//
// Values come from, in increasing precedence: built-in defaults, a YAML file
// (cuedeck.yaml in the working directory or the user config directory),
// CUEDECK_-prefixed environment variables and command-line flags bound by
// the CLI. Nested keys map to environment names with dots replaced by
// underscores, so output.device is CUEDECK_OUTPUT_DEVICE.
package config
