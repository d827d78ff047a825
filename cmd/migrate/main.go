package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"playledger/internal/config"
	"playledger/internal/infrastructure"
	"playledger/internal/repository"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	infrastructure.SetupLogging("playledger-migrate", cfg.Env)

	flag.Parse()
	args := flag.Args()

	if len(args) < 1 {
		fmt.Println("Error: migration command is required")
		fmt.Println("Usage: go run cmd/migrate/main.go [command] [args]")
		fmt.Println("Commands: up, down, status, redo, reset, version")
		os.Exit(1)
	}

	command := args[0]

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	slog.Info("starting migration", "command", command)

	if err := repository.RunMigrations(ctx, cfg.DSN(), command); err != nil {
		slog.Error("migration error", "command", command, "error", err)
		os.Exit(1)
	}

	fmt.Println("Migration finished successfully")
}
