package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/AlverezYari/featherlink/internal/logging"
	"github.com/AlverezYari/featherlink/internal/session"
	"github.com/AlverezYari/featherlink/internal/transport"
	"github.com/AlverezYari/featherlink/pkg/camera"
)

func newCaptureCmd(opts *globalOptions) *cobra.Command {
	var (
		out     string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Take one still image and write it to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(cmd.Context(), opts, out, timeout)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default capture-<time>.<ext>)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "give up if no image arrives in time")
	return cmd
}

func runCapture(ctx context.Context, opts *globalOptions, out string, timeout time.Duration) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	log := logging.NewConsole(cfg.Log.Level)

	dialer, err := transport.NewDialer(cfg.Transport)
	if err != nil {
		return err
	}

	updates := make(chan struct{}, 1)
	sess := session.New(dialer, cfg.Endpoint,
		session.WithLogger(log),
		session.WithListener(func(session.Snapshot) {
			select {
			case updates <- struct{}{}:
			default:
			}
		}),
	)
	defer sess.Close()

	if err := sess.Open(ctx); err != nil {
		return err
	}

	var before uint64
	if f := sess.Frame(); f != nil {
		before = f.Seq
	}
	sess.Capture()

	frame, err := waitForCapture(ctx, sess, updates, before, timeout)
	if err != nil {
		return err
	}

	data, err := frame.Decode()
	if err != nil {
		return errors.Wrap(err, "camera sent an undecodable image")
	}
	path := outputPath(out, mimetype.Detect(data))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}

	fmt.Printf("%s captured %s (%d bytes) to %s\n",
		color.GreenString("✓"), mimetype.Detect(data).String(), len(data), color.CyanString(path))
	return nil
}

// waitForCapture blocks until a frame newer than seq has completed the
// capture. The session has no capture timeout of its own; this one belongs
// to the command.
func waitForCapture(ctx context.Context, sess *session.Session, updates <-chan struct{}, seq uint64, timeout time.Duration) (*camera.Frame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		snap := sess.Snapshot()
		if snap.Status == camera.StatusDisconnected {
			if err := sess.Err(); err != nil {
				return nil, err
			}
			return nil, session.ErrClosed
		}
		if snap.Activity != camera.ActivityCapturing && snap.Frame != nil && snap.Frame.Seq > seq {
			return snap.Frame, nil
		}

		select {
		case <-updates:
		case <-sess.Done():
		case <-timer.C:
			sess.StopCapture()
			return nil, fmt.Errorf("no image after %s", timeout)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func outputPath(out string, mt *mimetype.MIME) string {
	if out == "" {
		return "capture-" + time.Now().Format("20060102-150405") + mt.Extension()
	}
	if filepath.Ext(out) == "" {
		return out + mt.Extension()
	}
	return out
}
