package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/law-makers/leadharvest/internal/cli"
)

func main() {
	// Interrupts cancel the running command; the worker and HTTP server
	// shut down from there.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.Execute(ctx)
}
