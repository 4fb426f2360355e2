package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"devdb/pkg/common/config"
)

// Config holds the logger configuration
type Config struct {
	Level      string `json:"level" yaml:"level"`
	Format     string `json:"format" yaml:"format"` // "json" or "console"
	TimeFormat string `json:"time_format" yaml:"time_format"`
	Output     string `json:"output" yaml:"output"` // "stdout", "stderr", or file path
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "console",
		TimeFormat: time.RFC3339,
		Output:     "stdout",
	}
}

// FromSettings builds a logger Config from the application's log section,
// keeping defaults for empty values.
func FromSettings(s config.Log) *Config {
	c := DefaultConfig()
	if s.Level != "" {
		c.Level = s.Level
	}
	if s.Format != "" {
		c.Format = s.Format
	}
	if s.Output != "" {
		c.Output = s.Output
	}
	return c
}

// Init initializes the global logger with the provided configuration
func Init(config *Config) error {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = config.TimeFormat

	var output io.Writer
	switch config.Output {
	case "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		// Assume it's a file path
		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}
		output = file
	}

	if config.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: config.TimeFormat,
		}
	}

	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	return nil
}

// InitWithWriter points the global logger at w in JSON format. Intended for tests
// that assert on log output.
func InitWithWriter(level string, w io.Writer) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return nil
}

// GetLogger returns the global logger
func GetLogger() *zerolog.Logger {
	return &log.Logger
}

// WithComponent returns a logger with a component field
func WithComponent(component string) *zerolog.Logger {
	logger := log.Logger.With().Str("component", component).Logger()
	return &logger
}

// WithFields returns a logger with additional fields
func WithFields(fields map[string]interface{}) *zerolog.Logger {
	ctx := log.Logger.With()
	for key, value := range fields {
		ctx = ctx.Interface(key, value)
	}
	logger := ctx.Logger()
	return &logger
}
