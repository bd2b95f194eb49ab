package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.Disabled, ParseLevel("off"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("chatty"))
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn")

	log.Info().Msg("hidden")
	log.Warn().Str("component", "session").Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"component":"session"`)
}

func TestNewFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "featherlink.log")

	log, closer, err := NewFile(path, "info")
	require.NoError(t, err)
	log.Info().Msg("first")
	require.NoError(t, closer.Close())

	log, closer, err = NewFile(path, "info")
	require.NoError(t, err)
	log.Info().Msg("second")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "first")
	assert.Contains(t, string(b), "second")
}

func TestNewFileBadPath(t *testing.T) {
	_, _, err := NewFile(filepath.Join(t.TempDir(), "missing", "dir", "x.log"), "info")
	assert.Error(t, err)
}

func TestNewFileCopiesToExtra(t *testing.T) {
	var view bytes.Buffer
	log, closer, err := NewFile(filepath.Join(t.TempDir(), "x.log"), "info", Lines(&view))
	require.NoError(t, err)
	defer closer.Close()

	log.Info().Str("command", "capture").Msg("command sent")
	assert.Contains(t, view.String(), "command sent")
	assert.Contains(t, view.String(), "command=capture")
	assert.NotContains(t, view.String(), "{")
}
