// Package logger is the shared application logger. Call sites use printf-style
// helpers; output is structured JSON (or console text) produced by zerolog.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var globalLogger zerolog.Logger

// Config selects level, destination and encoding.
type Config struct {
	Level   string `json:"level" yaml:"level"`
	Debug   bool   `json:"debug" yaml:"debug"`
	Output  string `json:"output" yaml:"output"` // stdout | stderr
	Console bool   `json:"console" yaml:"console"`
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	globalLogger = zerolog.New(os.Stdout).Level(zerolog.InfoLevel).With().Timestamp().Logger()
}

// Init rebuilds the global logger from cfg.
func Init(cfg Config) error {
	var output io.Writer = os.Stdout
	if cfg.Output == "stderr" {
		output = os.Stderr
	}
	if cfg.Console {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	} else if cfg.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("parse log level %q: %w", cfg.Level, err)
		}
	}

	globalLogger = zerolog.New(output).Level(level).With().Timestamp().Logger()
	return nil
}

// SetOutput redirects the global logger, keeping its level. Used by tests.
func SetOutput(w io.Writer) {
	globalLogger = globalLogger.Output(w)
}

func SetDebug(debug bool) {
	if debug {
		globalLogger = globalLogger.Level(zerolog.DebugLevel)
	} else {
		globalLogger = globalLogger.Level(zerolog.InfoLevel)
	}
}

func GetLogger() zerolog.Logger {
	return globalLogger
}

// WithComponent returns a child logger tagged with component.
func WithComponent(component string) zerolog.Logger {
	return globalLogger.With().Str("component", component).Logger()
}

func Debug(format string, args ...interface{}) {
	globalLogger.Debug().Msgf(format, args...)
}

func Info(format string, args ...interface{}) {
	globalLogger.Info().Msgf(format, args...)
}

func Warn(format string, args ...interface{}) {
	globalLogger.Warn().Msgf(format, args...)
}

func Error(format string, args ...interface{}) {
	globalLogger.Error().Msgf(format, args...)
}

// Fatal logs and exits the process with status 1.
func Fatal(format string, args ...interface{}) {
	globalLogger.Fatal().Msgf(format, args...)
}
