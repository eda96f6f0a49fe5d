package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// Logger is the global logger instance
	Logger zerolog.Logger

	// Stdout carries image data, so diagnostics always go to stderr
	output io.Writer = os.Stderr
)

func init() {
	// Initialize with a default logger (info level, stderr)
	// Can be reconfigured later with Init()
	Logger = zerolog.New(output).
		With().
		Timestamp().
		Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = Logger
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// IsTerminal reports whether stderr is attached to a terminal
func IsTerminal() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

// Init initializes the global logger with the specified level and output
func Init(level string, pretty bool) {
	InitWriter(os.Stderr, level, pretty)
}

// InitWriter is Init with an explicit destination
func InitWriter(w io.Writer, level string, pretty bool) {
	zerolog.SetGlobalLevel(ParseLevel(level))

	output = w
	if pretty {
		output = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.TimeOnly,
			NoColor:    !IsTerminal(),
		}
	}

	Logger = zerolog.New(output).
		With().
		Timestamp().
		Logger()

	// Set as global logger
	log.Logger = Logger
}

// WithComponent returns a logger with a component field set
func WithComponent(component string) *zerolog.Logger {
	l := Logger.With().Str("component", component).Logger()
	return &l
}
