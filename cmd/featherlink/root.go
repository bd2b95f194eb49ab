package main

import (
	"errors"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/AlverezYari/featherlink/internal/config"
	"github.com/AlverezYari/featherlink/internal/metrics"
)

type globalOptions struct {
	configPath string
	envFile    string
	endpoint   string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "featherlink",
		Short: "Remote camera controller",
		Long: `featherlink connects to a remote camera over a websocket, shows its live feed
or takes still images, and can run a local camera simulator for development.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadDotEnv(opts.envFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd.Context(), opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config file (default $XDG_CONFIG_HOME/featherlink/config.yaml)")
	flags.StringVar(&opts.envFile, "env", ".env", "path to .env file (ignored if missing)")
	flags.StringVar(&opts.endpoint, "endpoint", "", "camera websocket endpoint, overrides config")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error, overrides config")

	root.AddCommand(newViewCmd(opts))
	root.AddCommand(newCaptureCmd(opts))
	root.AddCommand(newSimulateCmd(opts))
	return root
}

// loadDotEnv loads environment variables from path. A missing file is not
// an error so .env stays optional.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// loadConfig reads the config file and applies flag overrides.
func (o *globalOptions) loadConfig() (*config.AppConfig, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.endpoint != "" {
		cfg.Endpoint = o.endpoint
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, cfg.Validate()
}

// serveMetrics exposes m on addr in the background when addr is set.
func serveMetrics(addr string, m *metrics.Metrics, log zerolog.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error().Err(err).Str("addr", addr).Msg("metrics listener stopped")
		}
	}()
}
