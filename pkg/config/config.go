package config

import (
	"github.com/ocosta/remsync/pkg/models"
)

// Config represents the application configuration
type Config struct {
	Deploy  DeployConfig  `yaml:"deploy"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// DeployConfig holds deployment settings
type DeployConfig struct {
	// MaxWorkers bounds concurrent file transfers
	MaxWorkers int `yaml:"max_workers"`

	// DigestCommand is the remote utility used for content hashing
	DigestCommand string `yaml:"digest_command"`

	// IgnoreFile is the name of the per-workspace ignore file
	IgnoreFile string `yaml:"ignore_file"`

	// IgnoreRules are patterns applied to every workspace in addition to
	// its ignore file
	IgnoreRules []string `yaml:"ignore_rules"`

	// TriggerOnNoop controls whether a "changed" deployment with nothing
	// to upload still counts as successful: the pending set is cleared
	// and the post-deploy trigger fires
	TriggerOnNoop bool `yaml:"trigger_on_noop"`

	// BandwidthLimit caps transfer speed in bytes per second (0 = unlimited)
	BandwidthLimit int64 `yaml:"bandwidth_limit"`
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format"`   // "human" or "json"
	Progress bool   `yaml:"progress"` // Show progress bars
	Quiet    bool   `yaml:"quiet"`    // Suppress non-error output
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"` // "json" or "text"
	Level   string `yaml:"level"`  // "debug", "info", "warn", "error"
	File    string `yaml:"file"`   // Log file path (empty = disabled)
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Deploy: DeployConfig{
			MaxWorkers:    5,
			DigestCommand: "md5sum",
			IgnoreFile:    ".deployignore",
			IgnoreRules:   []string{"*.tmp"},
			TriggerOnNoop: true,
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: true,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Format:  "json",
			Level:   "info",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Deploy.MaxWorkers < 1 {
		return &models.ValidationError{
			Field:   "deploy.max_workers",
			Message: "must be at least 1",
		}
	}

	if c.Deploy.DigestCommand == "" {
		return &models.ValidationError{
			Field:   "deploy.digest_command",
			Message: "digest command is required",
		}
	}

	if c.Deploy.BandwidthLimit < 0 {
		return &models.ValidationError{
			Field:   "deploy.bandwidth_limit",
			Message: "must not be negative",
		}
	}

	validFormats := map[string]bool{"human": true, "progress": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human', 'progress' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	return nil
}
