// Command recordflat flattens hierarchical records into tables.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/usestring/recordflat/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cli.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
