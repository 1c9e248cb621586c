// Package config loads and validates vinflow's TOML configuration.
//
// Configuration is resolved from an explicit path when given, then
// ~/.config/vinflow/config.toml, then ./vinflow.toml. Missing files are
// not an error; defaults apply.
package config
