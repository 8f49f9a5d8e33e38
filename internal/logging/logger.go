// Package logging provides zap logger helpers.
package logging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config selects the encoder preset and minimum level.
type Config struct {
	Development bool
	// Level overrides the preset's and the file's level when set (debug, info, warn, error).
	Level string
	// File is a YAML zap.Config laid over the preset. A missing file leaves the preset as is.
	File string
}

// New builds a zap.Logger configured for development or production.
func New(cfg Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zcfg = zap.NewProductionConfig()
		zcfg.DisableStacktrace = false
	}
	zcfg.EncoderConfig.TimeKey = "ts"

	if cfg.File != "" {
		if err := overlayFile(&zcfg, cfg.File); err != nil {
			return nil, err
		}
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

func overlayFile(zcfg *zap.Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read log config: %w", err)
	}
	if err := yaml.Unmarshal(data, zcfg); err != nil {
		return fmt.Errorf("parse log config %s: %w", path, err)
	}
	return nil
}
