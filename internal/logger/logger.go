// Package logger configures the zerolog logger shared by the graph packages.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	isDevelopment = false // if running in debug mode

	once sync.Once

	globalLogger zerolog.Logger
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}

// GetLogger returns the process-wide logger, creating it on first use. The
// component name ends up as the "component" field of every line.
func GetLogger(component string) zerolog.Logger {
	once.Do(func() {
		if !isDevelopment {
			globalLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()
			return
		}

		// Human-readable console output for development.
		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339,
			FormatLevel: func(i any) string {
				return strings.ToUpper(fmt.Sprintf("[%5s]", i))
			},
			FormatCaller: func(i any) string {
				return filepath.Base(fmt.Sprintf("%s", i))
			}}
		globalLogger = zerolog.New(consoleWriter).Level(zerolog.TraceLevel).With().Timestamp().Caller().Logger()
	})

	return globalLogger.With().Str("component", component).Logger()
}

// SetDevelopment switches to console output. Must be called before the first
// GetLogger call to have an effect.
func SetDevelopment(value bool) {
	isDevelopment = value
}
