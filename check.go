package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/runpulse/runpulse/internal/track"
)

// errNothingTracked is returned by check when the store is empty; main
// maps it to exit code 2 so scripts can tell "nothing to do" from failure.
var errNothingTracked = errors.New("nothing is tracked yet, use 'runpulse track' first")

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check every tracked leaderboard once",
		Long:  "Runs one check cycle over all tracked runs, updates stored records, and exits.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd.Context())
		},
	}
}

func runCheck(parent context.Context) error {
	logger := buildLogger()

	store, writer, err := loadStore(logger)
	if err != nil {
		return err
	}

	if store.Len() == 0 {
		return errNothingTracked
	}

	engine := newEngine(store, writer, logger)

	ctx := shutdownContext(parent, logger)

	engineCtx, stopEngine := context.WithCancel(context.Background())
	defer stopEngine()

	engineDone := make(chan error, 1)
	go func() { engineDone <- engine.Run(engineCtx) }()

	reportCh, err := engine.RunCycle(ctx)
	if err != nil {
		stopEngine()
		<-engineDone

		return err
	}

	var report track.CycleReport

	select {
	case report = <-reportCh:
	case <-ctx.Done():
	}

	stopEngine()
	<-engineDone

	statusf("Checked %d runs: %d updated, %d new records, %d obsoleted, %d failed (%s)\n",
		report.Total, report.Updated, report.NewRecords, report.Obsoleted,
		report.Failed, report.Duration.Round(time.Millisecond))

	return nil
}
