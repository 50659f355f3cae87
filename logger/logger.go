package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LOG_LEVEL" envDefault:"info"`
	// Format is json or console.
	Format string `yaml:"format" env:"LOG_FORMAT" envDefault:"json"`
	// OutputPaths accepts stdout, stderr or file paths.
	OutputPaths []string `yaml:"outputPaths" env:"LOG_OUTPUT_PATHS" envSeparator:"," envDefault:"stderr"`
}

func DefaultConfig() Config {
	return Config{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stderr"},
	}
}

// New builds a zap logger. Messages are keyed "message" instead of "msg".
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", cfg.Level, err)
	}

	var zcfg zap.Config
	switch cfg.Format {
	case "console":
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "json", "":
		zcfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format %s", cfg.Format)
	}

	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.EncoderConfig.MessageKey = "message"
	if len(cfg.OutputPaths) > 0 {
		zcfg.OutputPaths = cfg.OutputPaths
	}

	return zcfg.Build()
}
