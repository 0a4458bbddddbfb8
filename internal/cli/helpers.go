package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ocosta/remsync/pkg/config"
	"github.com/ocosta/remsync/pkg/logging"
	"github.com/ocosta/remsync/pkg/output"
)

// loadConfig loads the configuration from the --config flag path or the
// default location, falling back to defaults when no file exists
func loadConfig() (*config.Config, error) {
	if globalFlags.ConfigFile != "" {
		return config.LoadFromFile(globalFlags.ConfigFile)
	}
	return config.LoadDefault()
}

// createLogger creates a logger based on configuration
func createLogger(logFile, logFormat, logLevel string) (logging.Logger, error) {
	// If no log file specified, return null logger
	if logFile == "" {
		return logging.NewNullLogger(), nil
	}

	var format logging.Format
	switch logFormat {
	case "json":
		format = logging.FormatJSON
	default:
		format = logging.FormatText
	}

	return logging.NewFileLogger(logging.FileLoggerConfig{
		Path:       logFile,
		Format:     format,
		Level:      logging.ParseLevel(logLevel),
		MaxSizeMB:  10,
		MaxBackups: 5,
	})
}

// createFormatter creates an output formatter from the format flag and the
// configured progress preference
func createFormatter(format string, cfg *config.Config) (output.Formatter, error) {
	if globalFlags.Quiet {
		return output.NewJSONFormatter(), nil
	}
	if format == "" {
		format = cfg.Output.Format
		if format == "human" && cfg.Output.Progress {
			format = "progress"
		}
	}
	return output.New(format)
}

// parseBandwidth parses a human bandwidth limit such as "10M" or "1G"
// into bytes per second. An empty string means unlimited.
func parseBandwidth(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "K"), strings.HasSuffix(s, "k"):
		multiplier = 1024
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "M"), strings.HasSuffix(s, "m"):
		multiplier = 1024 * 1024
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "G"), strings.HasSuffix(s, "g"):
		multiplier = 1024 * 1024 * 1024
		s = s[:len(s)-1]
	}

	value, err := strconv.ParseInt(s, 10, 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid bandwidth limit %q", s)
	}
	return value * multiplier, nil
}
