package common

import (
	"github.com/rs/zerolog"

	"devdb/pkg/common/config"
	"devdb/pkg/common/logger"
)

// Init loads configuration from configPath (or the default search paths when
// empty) and initializes the logger from its log section.
func Init(configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(logger.FromSettings(cfg.Log)); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitLogger initializes the logger with default configuration
func InitLogger() error {
	return logger.Init(logger.DefaultConfig())
}

// GetLogger returns the global logger instance
func GetLogger() *zerolog.Logger {
	return logger.GetLogger()
}

// IsDebug reports the loaded debug flag
func IsDebug() bool {
	return config.IsDebug()
}
