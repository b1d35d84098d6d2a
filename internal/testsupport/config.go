// Package testsupport provides shared fixtures for tests: temp-directory
// configs and seeded archive databases.
package testsupport

import (
	"path/filepath"
	"testing"

	"conflate/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DatabasePath = filepath.Join(base, "archive.db")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.AuditDir = filepath.Join(base, "audit")
	cfg.Backup.Dir = filepath.Join(base, "backups")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithAliases sets the known-alias map on the test config.
func WithAliases(aliases map[string]string) ConfigOption {
	return func(c *config.Config) {
		c.Aliases = aliases
	}
}

// WithBackupDisabled turns off pre-run backups.
func WithBackupDisabled() ConfigOption {
	return func(c *config.Config) {
		c.Backup.Enabled = false
	}
}
