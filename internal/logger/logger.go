// Package logger provides verbose logging for the weft CLI.
// When verbose mode is enabled via the --verbose flag, debug messages
// are printed to stderr to show what ingest, search and render are doing.
//
// Messages go through a zerolog console writer. Level tags are coloured
// when the output is a terminal.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	zlog              = newZerolog(os.Stderr)
)

// ANSI colours for level tags.
const (
	colourRed    = 31
	colourYellow = 33
	colourBlue   = 34
	colourGrey   = 90
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for verbose logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	zlog = newZerolog(w)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		zlog.Debug().Msgf(format, args...)
	}
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		zlog.Info().Msgf(format, args...)
	}
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		zlog.Warn().Msgf(format, args...)
	}
}

// newZerolog builds a timestamp-free console logger that prints
// "[LEVEL] message" lines.
func newZerolog(w io.Writer) zerolog.Logger {
	colour := isTerminal(w)
	cw := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    !colour,
		PartsOrder: []string{zerolog.LevelFieldName, zerolog.MessageFieldName},
		FormatLevel: func(i any) string {
			return levelTag(i, colour)
		},
	}
	return zerolog.New(cw).Level(zerolog.DebugLevel)
}

func levelTag(i any, colour bool) string {
	level, _ := i.(string)
	var tag string
	var code int
	switch level {
	case zerolog.LevelDebugValue:
		tag, code = "[DEBUG]", colourGrey
	case zerolog.LevelInfoValue:
		tag, code = "[INFO]", colourBlue
	case zerolog.LevelWarnValue:
		tag, code = "[WARN]", colourYellow
	default:
		tag, code = "[ERROR]", colourRed
	}
	if !colour {
		return tag
	}
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", code, tag)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
