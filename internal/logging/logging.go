// internal/logging/logging.go

package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ParseLevel maps a config level name to a zerolog level. Unknown names fall
// back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// New returns a logger writing JSON lines to w.
func New(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// NewFile opens (or creates) path for appending and returns a logger on it,
// copying every event to extra as well. The terminal UI owns stdout, so
// interactive runs log here. The caller must close the returned file.
func NewFile(path, level string, extra ...io.Writer) (zerolog.Logger, io.Closer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), nil, errors.Wrapf(err, "failed to open log file %s", path)
	}
	var w io.Writer = file
	if len(extra) > 0 {
		w = zerolog.MultiLevelWriter(append([]io.Writer{file}, extra...)...)
	}
	return New(w, level), file, nil
}

// Lines renders events as plain single lines for an in-app log view.
func Lines(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.Kitchen}
}

// NewConsole returns a human readable logger on stderr for headless commands.
func NewConsole(level string) zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return New(w, level)
}
