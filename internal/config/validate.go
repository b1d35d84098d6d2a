package config

import (
	"errors"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DatabasePath) == "" {
		return errors.New("paths.database_path must be set (or export DB_PATH)")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.FuzzyWindow < 1 {
		return errors.New("matching.fuzzy_window must be at least 1")
	}
	for raw, canonical := range c.Aliases {
		if strings.TrimSpace(raw) == "" || strings.TrimSpace(canonical) == "" {
			return errors.New("aliases entries must map a non-empty name to a non-empty canonical name")
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return errors.New("logging.format must be console or json")
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.New("logging.level must be debug, info, warn, or error")
	}
	return nil
}
