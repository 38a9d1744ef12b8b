package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx := context.Background()

	c := NewConfig()
	if err := c.LoadDotEnv(os.Getwd); err != nil {
		slog.Error("can't read .env file", "error", err.Error())
		os.Exit(1)
	}
	c.LoadEnv(os.Getenv)
	if err := c.ParseFlags(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	app, err := NewClientApp(ctx, c)
	if err != nil {
		slog.Error("can't initialize app, sorry", "error", err.Error())
		os.Exit(1)
	}

	// Initialize context that cancelled on SIGTERM
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		slog.Warn("Interrupt signal")
		cancel()
	}()

	if err := app.Run(ctx); err != nil {
		slog.Error("Client error", "error", err.Error())
	}
}
