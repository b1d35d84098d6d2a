// Package config loads and validates conflate's TOML configuration.
//
// Configuration resolves from, in order: an explicit --config path, then
// ~/.config/conflate/config.toml, then ./conflate.toml. Missing files fall
// back to built-in defaults so the tool runs against ./archive.db with no
// configuration at all. DB_PATH overrides the database location either way.
package config
