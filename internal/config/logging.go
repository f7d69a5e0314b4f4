package config

import (
	"path/filepath"

	"outreach/internal/logging"
)

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	Format     string          `yaml:"format"`     // json, console
	DebugMode  bool            `yaml:"debug_mode"` // per-category files instead of stderr
	Categories map[string]bool `yaml:"categories"` // per-category toggles, unlisted = enabled
	Dir        string          `yaml:"dir"`
}

// IsCategoryEnabled returns whether logging is enabled for a category.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	enabled, exists := c.Categories[category]
	return !exists || enabled
}

// ForLogger converts the section into the logging package's config.
// A relative dir is resolved against base.
func (c LoggingConfig) ForLogger(base string) logging.Config {
	dir := c.Dir
	if dir != "" && !filepath.IsAbs(dir) && base != "" {
		dir = filepath.Join(base, dir)
	}
	return logging.Config{
		Level:      c.Level,
		Format:     c.Format,
		DebugMode:  c.DebugMode,
		Categories: c.Categories,
		Dir:        dir,
	}
}
