// Command parldok-indexer harvests document metadata from the Hamburg
// Bürgerschaft parldok listing and persists it.
//
// Usage:
//
//	parldok-indexer serve            # HTTP trigger on $PORT (default 8080)
//	parldok-indexer run              # one run, records as JSON lines on stdout
//	parldok-indexer run --dry-run    # same, without persisting
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
