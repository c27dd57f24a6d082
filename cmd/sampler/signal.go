package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

// setupSignalHandler returns a context cancelled on the first SIGINT/SIGTERM.
// A second signal exits immediately.
func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("[Signal] Received %v, stopping walk and exporting what was collected...", sig)
			cancel()
		case <-ctx.Done():
			return
		}

		sig := <-sigCh
		log.Printf("[Signal] Received second %v, forcing exit", sig)
		os.Exit(1)
	}()

	return ctx, cancel
}
