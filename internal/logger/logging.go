// Package logger provides modifications to charmbracelet/log's default logger to be used in various files/packages.
package logger

import (
	"os"

	"github.com/charmbracelet/log"
)

// activeFormatter mirrors what Setup configured so sub-loggers match the
// default logger's output shape.
var activeFormatter = log.TextFormatter

// Setup configures the package-level default logger. Everything goes to
// stderr: stdout belongs to the stdio protocol when serving over it.
// The debug flag wins over the configured level.
func Setup(level, format string, debug bool) {
	log.SetOutput(os.Stderr)
	log.SetReportTimestamp(true)

	activeFormatter = log.TextFormatter
	if format == "json" {
		activeFormatter = log.JSONFormatter
	}
	log.SetFormatter(activeFormatter)

	if debug {
		log.SetLevel(log.DebugLevel)
		return
	}
	log.SetLevel(ParseLevel(level))
}

// ParseLevel maps a config level name to a charm log level. Unknown names
// land on info.
func ParseLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// New creates a prefixed sub-logger that respects the global log level
func New(prefix string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          prefix,
		ReportCaller:    false,
		ReportTimestamp: true,
		Formatter:       activeFormatter,
		Level:           log.GetLevel(),
	})
}

// NewWithConfig creates a new charm log with custom config
func NewWithConfig(prefix string, level log.Level, caller bool, showTimestamp bool, fmt log.Formatter) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportCaller:    caller,
		ReportTimestamp: showTimestamp,
		Formatter:       fmt,
	})
}
