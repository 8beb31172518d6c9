// ./main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sightline-ai/sightline/cmd"
)

// main is the entry point for the sightline CLI.
func main() {
	// A signal-aware context lets an in-flight run stop at the next step
	// boundary instead of being killed mid-action.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Execute(ctx)
}
