package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/AlverezYari/featherlink/internal/logging"
	"github.com/AlverezYari/featherlink/internal/metrics"
	"github.com/AlverezYari/featherlink/internal/session"
	"github.com/AlverezYari/featherlink/internal/transport"
	"github.com/AlverezYari/featherlink/internal/tui"
)

func newViewCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Open the interactive camera view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd.Context(), opts)
		},
	}
}

func runView(ctx context.Context, opts *globalOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	bridge := tui.NewBridge()
	defer bridge.Close()

	log, logFile, err := logging.NewFile(cfg.Log.File, cfg.Log.Level, logging.Lines(bridge))
	if err != nil {
		return err
	}
	defer logFile.Close()

	dialer, err := transport.NewDialer(cfg.Transport)
	if err != nil {
		return err
	}

	m := metrics.New()
	serveMetrics(cfg.Metrics.Listen, m, log)

	sess := session.New(dialer, cfg.Endpoint,
		session.WithLogger(log),
		session.WithMetrics(m),
		session.WithListener(bridge.Snapshot),
	)
	// Released on every exit path, including a panic inside the program.
	defer sess.Close()

	p := tea.NewProgram(
		tui.New(cfg.Endpoint, sess),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	bridge.Attach(p)

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
