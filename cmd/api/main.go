package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"playledger/internal/infrastructure"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := infrastructure.Bootstrap(ctx)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	slog.Info("playledger is running")
	if err := app.Run(ctx); err != nil {
		slog.Error("app stopped with error", "error", err)
		cleanup()
		os.Exit(1)
	}
	slog.Info("playledger stopped")
}
