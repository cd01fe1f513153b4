package util

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM. The first
// signal cancels the context so in-flight jobs can reach a terminal state and
// be recorded; a second signal exits immediately without draining.
func ShutdownContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("shutdown requested, cancelling in-flight jobs", "signal", sig.String())
		cancel()

		sig = <-sigCh
		slog.Warn("second signal, exiting without draining", "signal", sig.String())
		os.Exit(1)
	}()

	return ctx
}
