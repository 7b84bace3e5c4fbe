package logging

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
	"golang.org/x/exp/maps"
)

type LogFormat string

const (
	FormatText LogFormat = "text"
	FormatJson LogFormat = "json"
)

var validLogFormats = map[LogFormat]bool{
	FormatText: true,
	FormatJson: true,
}

// Config defines ttbench logging configuration.
type Config struct {
	// Log level, e.g. INFO, ERROR etc
	Level string
	// Logging format, either text or json
	Format LogFormat
	// Defines configuration for file logging
	File struct {
		// Whether file logging is enabled.
		Enabled bool
		// Log level, e.g. INFO, ERROR etc
		Level string
		// Logging format, either text or json
		Format LogFormat
		// The Location of the logfile on disk
		LogFile string
		// Log Rotation Options
		Rotation struct {
			// Maximum size in megabytes of the log file before it gets rotated
			MaxSizeMb int
			// Maximum number of old log files to retain
			MaxBackups int
			// Maximum number of days to retain old log files
			MaxAgeDays int
			// Whether to compress rotated log files
			Compress bool
		}
	}
}

// Validate checks that the levels and formats can be understood by the logger.
func (c Config) Validate() error {
	if _, err := parseLogLevel(c.Level); err != nil {
		return err
	}
	if err := validateLogFormat(c.Format); err != nil {
		return err
	}

	if c.File.Enabled {
		if _, err := parseLogLevel(c.File.Level); err != nil {
			return err
		}
		if err := validateLogFormat(c.File.Format); err != nil {
			return err
		}
		if c.File.LogFile == "" {
			return errors.New("file.logFile must be set when file logging is enabled")
		}
		if c.File.Rotation.MaxSizeMb <= 0 {
			return errors.New("rotation.maxSizeMb must be greater than zero")
		}
	}
	return nil
}

func validateLogFormat(f LogFormat) error {
	_, ok := validLogFormats[f]
	if !ok {
		return errors.Errorf("unknown log format: %s.  Valid formats are %s", f, maps.Keys(validLogFormats))
	}
	return nil
}

func parseLogLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "panic":
		return zapcore.PanicLevel, nil
	case "fatal":
		return zapcore.FatalLevel, nil
	default:
		return zapcore.InfoLevel, errors.Errorf("unknown level: %s", level)
	}
}
