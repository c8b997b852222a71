// File: cmd/hivecrawl/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/veyrune/hivecrawl/cmd"
	"github.com/veyrune/hivecrawl/internal/observability"
)

func main() {
	// A signal on SIGINT/SIGTERM cancels the run context; the engine saves
	// what it can and the browser shuts down before exit.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
