// Package config loads environment-based configuration into tagged structs.
//
// Every component in this module declares its configuration as a struct with
// `env` tags and receives its values through Load or MustLoad. A local .env
// file is honored once per process to keep development setups out of shell
// profiles.
//
// # Usage
//
//	var cfg docstore.Config
//	config.MustLoad(&cfg)
//
// # Error Handling
//
// Load wraps parsing failures with ErrParsingConfig so callers can branch
// with errors.Is while still seeing the underlying field-level error.
package config
