package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// shutdownContext returns a context that cancels on the first SIGINT/SIGTERM
// and force-exits on the second. The engine gets time to finish in-flight
// checks and write pending state on the first signal, while a second signal
// still kills a hung process.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		seen := 0
		for {
			select {
			case sig := <-sigCh:
				seen++
				if seen == 1 {
					logger.Info("received signal, shutting down", slog.String("signal", sig.String()))
					cancel()
					continue
				}
				logger.Warn("received second signal, forcing exit", slog.String("signal", sig.String()))
				os.Exit(1)
			case <-parent.Done():
				return
			}
		}
	}()

	return ctx
}
