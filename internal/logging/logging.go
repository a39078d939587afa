// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Sink selects where log output goes
type Sink int

const (
	// SinkDiscard drops all output.
	SinkDiscard Sink = iota
	// SinkConsole writes human-readable lines to stderr.
	SinkConsole
	// SinkFile appends JSON lines to a file, keeping the terminal free for the TUI.
	SinkFile
)

// Options configures Init
type Options struct {
	Sink    Sink
	Verbose bool
	Path    string // log file path, SinkFile only
}

// Nothing is logged until Init picks a sink.
func init() {
	log.Logger = zerolog.Nop()
}

// Init installs the global logger. The returned closer releases the log file
// and is safe to call when no file was opened.
func Init(opts Options) (io.Closer, error) {
	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}

	switch opts.Sink {
	case SinkConsole:
		w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		log.Logger = zerolog.New(w).With().Timestamp().Logger().Level(level)
		return nopCloser{}, nil

	case SinkFile:
		if opts.Path == "" {
			return nopCloser{}, fmt.Errorf("log file path is empty")
		}
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o700); err != nil {
			return nopCloser{}, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nopCloser{}, fmt.Errorf("failed to open log file: %w", err)
		}
		log.Logger = zerolog.New(f).With().Timestamp().Logger().Level(level)
		return f, nil

	default:
		log.Logger = zerolog.Nop()
		return nopCloser{}, nil
	}
}

// For returns a child of the global logger tagged with a component name
func For(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
