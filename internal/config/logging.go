package config

import (
	"kernelcheck/internal/kernel"
	"kernelcheck/internal/logging"
)

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level" json:"level,omitempty"`                     // debug, info, warn, error
	Format     string          `yaml:"format" json:"format,omitempty"`                   // console, json
	Output     string          `yaml:"output" json:"output,omitempty"`                   // stderr, stdout, or a file path
	Categories map[string]bool `yaml:"categories,omitempty" json:"categories,omitempty"` // Per-category toggles
}

// Options converts the settings for the logging package.
func (c *LoggingConfig) Options() logging.Options {
	return logging.Options{
		Level:      c.Level,
		Format:     c.Format,
		Output:     c.Output,
		Categories: c.Categories,
	}
}

// Validate checks the level name.
func (c *LoggingConfig) Validate() error {
	if _, err := logging.ParseLevel(c.Level); err != nil {
		return &kernel.ConfigurationError{Param: "logging.level", Reason: err.Error()}
	}
	return nil
}
