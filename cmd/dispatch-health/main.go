package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"trucking-dispatch-core/internal/app"
	"trucking-dispatch-core/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// .env читаем сами: флаги разбирает cobra, не config.Load
	_ = godotenv.Load()
	container := app.MustBuildHealthContainer(ctx, config.FromEnv)

	err := app.RunHealth(ctx, container, os.Args[1:], os.Stdout)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, "dispatch-health:", err)
		os.Exit(1)
	}
}
