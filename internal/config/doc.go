// SPDX-License-Identifier: MPL-2.0

// Package config loads the fetchunroll CLI defaults with Viper.
//
// Values are layered in this order, later layers winning:
//
//  1. Built-in defaults (DefaultConfig)
//  2. The config file: config.cue or config.toml under ConfigDir, or the
//     file given with --config
//  3. FETCHUNROLL_* environment variables (FETCHUNROLL_UNROLL_STRIP_COMPONENTS=1)
//
// Both file formats are validated against the embedded CUE schema
// (config_schema.cue) before they reach Viper, so a typo in a key or an
// out-of-range value is reported with its path instead of being ignored.
// Command-line flags are applied on top by the CLI.
package config
