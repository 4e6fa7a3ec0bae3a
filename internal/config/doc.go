// Package config loads, defaults, and validates the darkroom configuration.
//
// Configuration is a single TOML file resolved from an explicit path,
// ~/.config/darkroom/config.toml, or ./darkroom.toml in that order. Load
// applies defaults first, then decodes the file over them, normalizes paths
// and extension lists, and validates invariants such as the reserved folder
// naming rule. Other packages consume the typed Config value only; no package
// reads the file itself.
package config
