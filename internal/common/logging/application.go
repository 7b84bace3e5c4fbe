package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ConfigureApplicationLogging sets up logging suitable for an application and replaces the std logger with it.
func ConfigureApplicationLogging(config Config, opts ...zap.Option) error {
	logger, err := NewApplicationLogger(config, opts...)
	if err != nil {
		return err
	}
	ReplaceStdLogger(logger)
	return nil
}

// NewApplicationLogger builds a logger writing to stdout and, if enabled, to a rotated log file.
func NewApplicationLogger(config Config, opts ...zap.Option) (*Logger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	consoleLevel, err := parseLogLevel(config.Level)
	if err != nil {
		return nil, err
	}
	cores := []zapcore.Core{
		zapcore.NewCore(newEncoder(config.Format), zapcore.Lock(os.Stdout), consoleLevel),
	}

	if config.File.Enabled {
		fileLevel, err := parseLogLevel(config.File.Level)
		if err != nil {
			return nil, err
		}
		rotation := config.File.Rotation
		writer := &lumberjack.Logger{
			Filename:   config.File.LogFile,
			MaxSize:    rotation.MaxSizeMb,
			MaxBackups: rotation.MaxBackups,
			MaxAge:     rotation.MaxAgeDays,
			Compress:   rotation.Compress,
		}
		cores = append(cores, zapcore.NewCore(newEncoder(config.File.Format), zapcore.AddSync(writer), fileLevel))
	}

	options := append([]zap.Option{zap.AddCaller(), zap.AddCallerSkip(2)}, opts...)
	return FromZap(zap.New(zapcore.NewTee(cores...), options...)), nil
}

func newEncoder(format LogFormat) zapcore.Encoder {
	pe := zap.NewProductionEncoderConfig()
	pe.EncodeTime = zapcore.ISO8601TimeEncoder
	if format == FormatJson {
		return zapcore.NewJSONEncoder(pe)
	}
	pe.ConsoleSeparator = " "
	pe.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(pe)
}
