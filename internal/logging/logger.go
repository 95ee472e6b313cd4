package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu          sync.Mutex
	initialized bool
)

// Init initializes the global logger. If logFilePath is non-empty, logs are
// written to both stdout and the file. level can be "debug", "info", "warn", "error".
func Init(logFilePath, level string) (func(), error) {
	zerolog.SetGlobalLevel(parseLevel(level))

	var writers []io.Writer
	writers = append(writers, os.Stdout)
	var f *os.File
	if logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		var err error
		f, err = os.OpenFile(logFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, err
		}
		writers = append(writers, f)
	}
	multi := io.MultiWriter(writers...)

	mu.Lock()
	Log = zerolog.New(multi).With().Timestamp().Logger()
	initialized = true
	mu.Unlock()

	return func() {
		if f != nil {
			_ = f.Close()
		}
	}, nil
}

// EnsureInit runs Init unless the logger was already initialized, in which
// case it returns a no-op cleanup. It is safe to call from every fixture.
func EnsureInit(logFilePath, level string) (func(), error) {
	mu.Lock()
	done := initialized
	mu.Unlock()
	if done {
		return func() {}, nil
	}
	return Init(logFilePath, level)
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	}
	return zerolog.InfoLevel
}

// Log is the package-global logger configured by Init
var Log = zerolog.Nop()

// Get returns a pointer to the package-global logger
func Get() *zerolog.Logger {
	return &Log
}
