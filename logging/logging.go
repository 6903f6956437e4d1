// Package logging builds the zap loggers used across the engine.
package logging

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the level and format of the process logger.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level"`
	// Development switches to the human-readable console encoder with
	// caller and stack information.
	Development bool `json:"development" yaml:"development"`
	// Encoding overrides the encoder: "json" or "console".
	Encoding string `json:"encoding,omitempty" yaml:"encoding,omitempty"`
}

// DefaultConfig logs at info level in JSON.
func DefaultConfig() Config {
	return Config{Level: "info"}
}

// Validate checks the level and encoding names.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.level()); err != nil {
		return errors.Wrap(err, "log level")
	}
	switch c.Encoding {
	case "", "json", "console":
		return nil
	default:
		return errors.Errorf("log encoding %q must be json or console", c.Encoding)
	}
}

func (c Config) level() string {
	if l := strings.TrimSpace(c.Level); l != "" {
		return strings.ToLower(l)
	}
	return "info"
}

// New builds a logger from cfg.
func New(cfg Config) (*zap.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lvl, _ := zapcore.ParseLevel(cfg.level())

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	if cfg.Encoding != "" {
		zc.Encoding = cfg.Encoding
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return logger, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
