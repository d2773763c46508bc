package main

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/runpulse/runpulse/internal/track"
)

const pidFileName = "runpulse.pid"

func newWatchCmd() *cobra.Command {
	var flagInterval string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll tracked leaderboards continuously",
		Long:  "Runs check cycles on the configured interval until interrupted. State is saved as records change and flushed on shutdown.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			interval := resolvedCfg.Check.PollIntervalDuration()

			if flagInterval != "" {
				d, err := time.ParseDuration(flagInterval)
				if err != nil {
					return err
				}

				interval = d
			}

			return runWatch(cmd.Context(), interval)
		},
	}

	cmd.Flags().StringVar(&flagInterval, "interval", "", "polling interval (overrides config)")

	return cmd
}

func runWatch(parent context.Context, interval time.Duration) error {
	logger := buildLogger()

	store, writer, err := loadStore(logger)
	if err != nil {
		return err
	}

	pidPath := filepath.Join(filepath.Dir(resolvedCfg.StatePath()), pidFileName)

	cleanup, err := writePIDFile(pidPath)
	if err != nil {
		return err
	}
	defer cleanup()

	engine := newEngine(store, writer, logger)

	ctx := shutdownContext(parent, logger)

	engineDone := make(chan error, 1)
	go func() { engineDone <- engine.Run(ctx) }()

	logger.Info("watching tracked runs",
		slog.Duration("interval", interval),
		slog.Int("tracked", store.Len()),
	)

	startCycle := func() {
		_, err := engine.RunCycle(ctx)

		switch {
		case err == nil:
		case errors.Is(err, track.ErrCycleInProgress):
			logger.Warn("previous check still running, skipping poll")
		case ctx.Err() == nil:
			logger.Error("starting check cycle failed", slog.String("error", err.Error()))
		}
	}

	startCycle()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			<-engineDone
			return nil
		case <-ticker.C:
			startCycle()
		}
	}
}
