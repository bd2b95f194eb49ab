package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlverezYari/featherlink/internal/config"
	"github.com/AlverezYari/featherlink/internal/server"
	"github.com/AlverezYari/featherlink/pkg/camera"
)

func startSimulator(t *testing.T) string {
	t.Helper()
	sim := server.New(config.SimulatorConfig{Listen: "127.0.0.1:0", FrameInterval: 10 * time.Millisecond},
		camera.NewPatternSource(64, 48), zerolog.Nop(), nil, nil)
	require.NoError(t, sim.Start())
	t.Cleanup(func() { sim.Stop() })
	return "ws://" + sim.Addr() + "/ws/camera"
}

func testOptions(t *testing.T, endpoint string) *globalOptions {
	return &globalOptions{
		configPath: filepath.Join(t.TempDir(), "config.yaml"),
		endpoint:   endpoint,
		logLevel:   "error",
	}
}

func TestRunCaptureWritesJPEG(t *testing.T) {
	opts := testOptions(t, startSimulator(t))
	out := filepath.Join(t.TempDir(), "still")

	require.NoError(t, runCapture(context.Background(), opts, out, 5*time.Second))

	data, err := os.ReadFile(out + ".jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mimetype.Detect(data).String())
}

func TestRunCaptureDialFailure(t *testing.T) {
	opts := testOptions(t, "ws://127.0.0.1:1/ws/camera")
	err := runCapture(context.Background(), opts, filepath.Join(t.TempDir(), "x.jpg"), time.Second)
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	jpeg := mimetype.Lookup("image/jpeg")
	assert.Equal(t, "shot.jpg", outputPath("shot", jpeg))
	assert.Equal(t, "shot.jpeg", outputPath("shot.jpeg", jpeg))
	assert.Regexp(t, `^capture-\d{8}-\d{6}\.jpg$`, outputPath("", jpeg))
}

func TestLoadDotEnv(t *testing.T) {
	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
	assert.NoError(t, loadDotEnv(""))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("FEATHERLINK_TEST_VALUE=from-dotenv\n"), 0644))
	t.Setenv("FEATHERLINK_TEST_VALUE", "")
	os.Unsetenv("FEATHERLINK_TEST_VALUE")

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-dotenv", os.Getenv("FEATHERLINK_TEST_VALUE"))
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	opts := testOptions(t, "ws://flag:1")
	cfg, err := opts.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "ws://flag:1", cfg.Endpoint)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestRootHasSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"view", "capture", "simulate"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}
