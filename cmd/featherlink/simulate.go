package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/AlverezYari/featherlink/internal/logging"
	"github.com/AlverezYari/featherlink/internal/metrics"
	"github.com/AlverezYari/featherlink/internal/server"
	"github.com/AlverezYari/featherlink/pkg/camera"
)

func newSimulateCmd(opts *globalOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a local camera simulator serving a test card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.Context(), opts, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on, overrides config")
	return cmd
}

func runSimulate(ctx context.Context, opts *globalOptions, listen string) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Simulator.Listen = listen
	}

	log := logging.NewConsole(cfg.Log.Level)
	source := camera.NewPatternSource(cfg.Simulator.Width, cfg.Simulator.Height)
	srv := server.New(cfg.Simulator, source, log, metrics.New(), nil)

	if err := srv.Start(); err != nil {
		return err
	}
	log.Info().Str("endpoint", "ws://"+srv.Addr()+"/ws/camera").Msg("ready, press ctrl+c to stop")

	<-ctx.Done()
	return srv.Stop()
}
